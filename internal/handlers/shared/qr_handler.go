package handlers

import (
	"strings"

	"stampcard/internal/services"
	"stampcard/internal/utils"
	"stampcard/internal/validators"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QRHandler struct {
	redemptionService services.RedemptionService
	logger            *logger.Logger
}

func NewQRHandler(redemptionService services.RedemptionService, log *logger.Logger) *QRHandler {
	return &QRHandler{
		redemptionService: redemptionService,
		logger:            log,
	}
}

// GenerateToken issues a one-time check-in code for the business terminal
func (h *QRHandler) GenerateToken(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	token, err := h.redemptionService.IssueCheckIn(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, "QR code generated", token)
}

// GetStaticToken returns the business's permanent code, creating it on first use
func (h *QRHandler) GetStaticToken(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	value, err := h.redemptionService.GetStaticToken(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Static QR code retrieved", gin.H{"token": value})
}

func (h *QRHandler) RotateStaticToken(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	value, err := h.redemptionService.RotateStaticToken(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Static QR code rotated", gin.H{"token": value})
}

// ValidateToken is called by the customer app after scanning a code
func (h *QRHandler) ValidateToken(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	var request validators.SubmitTokenRequest
	if !bindJSON(c, &request) || validationFailed(c, validators.ValidateSubmitToken(&request)) {
		return
	}

	result, err := h.redemptionService.SubmitToken(c.Request.Context(), customerID, request.Token, request.ExpectedBusiness())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "QR code accepted", result)
}

func (h *QRHandler) ConfirmToken(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	var request validators.ConfirmTokenRequest
	if !bindJSON(c, &request) || validationFailed(c, validators.ValidateConfirmToken(&request)) {
		return
	}

	result, err := h.redemptionService.ConfirmToken(c.Request.Context(), businessID, request.ToModel())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Transaction confirmed", result)
}

func (h *QRHandler) CancelToken(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	var request validators.CancelTokenRequest
	if !bindJSON(c, &request) || validationFailed(c, validators.ValidateStruct(&request)) {
		return
	}
	tokenID, _ := primitive.ObjectIDFromHex(request.TokenID)

	if err := h.redemptionService.CancelToken(c.Request.Context(), businessID, tokenID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "QR code cancelled", nil)
}

// PollStatic returns the customer who most recently scanned this business's
// code and is awaiting confirmation
func (h *QRHandler) PollStatic(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	poll, err := h.redemptionService.PollBusiness(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Poll result", poll)
}

func (h *QRHandler) GetTokenStatus(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.redemptionService.GetBusinessTokenStatus(c.Request.Context(), businessID, normalizeToken(c.Param("token")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "QR code status", status)
}

func (h *QRHandler) GetCustomerTokenStatus(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.redemptionService.PollCustomerStatus(c.Request.Context(), customerID, normalizeToken(c.Param("token")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "QR code status", status)
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
