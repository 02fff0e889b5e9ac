package handlers

import (
	"stampcard/internal/services"
	"stampcard/internal/utils"
	"stampcard/internal/validators"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GiftHandler struct {
	redemptionService services.RedemptionService
	accountService    services.AccountService
	logger            *logger.Logger
}

func NewGiftHandler(redemptionService services.RedemptionService, accountService services.AccountService, log *logger.Logger) *GiftHandler {
	return &GiftHandler{
		redemptionService: redemptionService,
		accountService:    accountService,
		logger:            log,
	}
}

// PrepareRedemption issues a gift code the customer shows at the counter
func (h *GiftHandler) PrepareRedemption(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	var request validators.PrepareGiftRequest
	if !bindJSON(c, &request) || validationFailed(c, validators.ValidatePrepareGift(&request)) {
		return
	}

	businessID, _ := primitive.ObjectIDFromHex(request.BusinessID)
	var giftID *primitive.ObjectID
	if request.GiftID != "" {
		id, _ := primitive.ObjectIDFromHex(request.GiftID)
		giftID = &id
	}

	token, err := h.redemptionService.PrepareGiftRedemption(c.Request.Context(), customerID, businessID, giftID, request.UseEntitlement)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, "Gift redemption prepared", token)
}

// VerifyRedemption shows the business what a presented gift code is for
func (h *GiftHandler) VerifyRedemption(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	var request validators.SubmitTokenRequest
	if !bindJSON(c, &request) || validationFailed(c, validators.ValidateSubmitToken(&request)) {
		return
	}

	verification, err := h.redemptionService.VerifyGiftRedemption(c.Request.Context(), businessID, request.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Gift redemption verified", verification)
}

func (h *GiftHandler) ListBusinessGifts(c *gin.Context) {
	businessID, ok := objectIDParam(c, "business_id", "business")
	if !ok {
		return
	}

	gifts, err := h.accountService.ListGifts(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Gifts retrieved", gin.H{"gifts": gifts})
}
