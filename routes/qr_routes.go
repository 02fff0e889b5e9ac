package routes

import (
	"time"

	handlers "stampcard/internal/handlers/shared"
	"stampcard/internal/middleware"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SubmitLimit throttles how often a customer may submit scanned codes.
type SubmitLimit struct {
	Limiter   middleware.RateLimiter
	PerMinute int
}

// SetupQRRoutes sets up the check-in and redemption flow
func SetupQRRoutes(r *gin.RouterGroup, qrHandler *handlers.QRHandler, limit SubmitLimit, log *logger.Logger) {
	business := r.Group("/qr")
	business.Use(middleware.BusinessRequired())
	{
		business.POST("/generate", qrHandler.GenerateToken)
		business.GET("/static", qrHandler.GetStaticToken)
		business.POST("/static/rotate", qrHandler.RotateStaticToken)
		business.POST("/confirm", qrHandler.ConfirmToken)
		business.POST("/cancel", qrHandler.CancelToken)
		business.GET("/poll-static", qrHandler.PollStatic)
		business.GET("/status/:token", qrHandler.GetTokenStatus)
	}

	customer := r.Group("/qr")
	customer.Use(middleware.CustomerRequired())
	{
		customer.POST("/validate",
			middleware.RateLimitMiddleware(limit.Limiter, "qr_submit", limit.PerMinute, time.Minute, log),
			qrHandler.ValidateToken,
		)
		customer.GET("/status/customer/:token", qrHandler.GetCustomerTokenStatus)
	}
}

// SetupGiftRoutes sets up the gift catalogue and gift redemption routes
func SetupGiftRoutes(r *gin.RouterGroup, giftHandler *handlers.GiftHandler) {
	gifts := r.Group("/gifts")
	{
		gifts.GET("/business/:business_id", giftHandler.ListBusinessGifts)
		gifts.POST("/redemptions/prepare", middleware.CustomerRequired(), giftHandler.PrepareRedemption)
		gifts.POST("/redemptions/verify", middleware.BusinessRequired(), giftHandler.VerifyRedemption)
	}
}
