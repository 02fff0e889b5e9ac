package routes

import (
	handlers "stampcard/internal/handlers/shared"
	"stampcard/internal/middleware"
	"stampcard/internal/models"

	"github.com/gin-gonic/gin"
)

func SetupTransactionRoutes(r *gin.RouterGroup, transactionHandler *handlers.TransactionHandler) {
	transactions := r.Group("/transactions")
	{
		transactions.GET("", middleware.RoleRequired(models.UserRoleCustomer, models.UserRoleBusiness), transactionHandler.GetTransactions)
		transactions.GET("/pending-reviews", middleware.CustomerRequired(), transactionHandler.GetPendingReviews)
		transactions.POST("/:id/review", middleware.CustomerRequired(), transactionHandler.SubmitReview)
	}
}

func SetupAccountRoutes(r *gin.RouterGroup, accountHandler *handlers.AccountHandler) {
	wallets := r.Group("/wallets")
	wallets.Use(middleware.CustomerRequired())
	{
		wallets.GET("", accountHandler.GetWallets)
		wallets.GET("/:business_id", accountHandler.GetWallet)
	}

	users := r.Group("/users")
	users.Use(middleware.CustomerRequired())
	{
		users.PUT("/fcm-token", accountHandler.UpdateDeviceToken)
	}

	customers := r.Group("/customers")
	customers.Use(middleware.BusinessRequired())
	{
		customers.DELETE("/:id", accountHandler.DisconnectCustomer)
	}
}
