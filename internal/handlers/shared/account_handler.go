package handlers

import (
	"stampcard/internal/services"
	"stampcard/internal/utils"
	"stampcard/internal/validators"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService services.AccountService
	logger         *logger.Logger
}

func NewAccountHandler(accountService services.AccountService, log *logger.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         log,
	}
}

func (h *AccountHandler) GetWallets(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	wallets, err := h.accountService.ListWallets(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Wallets retrieved", gin.H{"wallets": wallets})
}

func (h *AccountHandler) GetWallet(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}
	businessID, ok := objectIDParam(c, "business_id", "business")
	if !ok {
		return
	}

	wallet, err := h.accountService.GetWallet(c.Request.Context(), customerID, businessID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Wallet retrieved", wallet)
}

func (h *AccountHandler) UpdateDeviceToken(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	var request validators.DeviceTokenRequest
	if !bindJSON(c, &request) || validationFailed(c, validators.ValidateDeviceToken(&request)) {
		return
	}

	if err := h.accountService.RegisterDeviceToken(c.Request.Context(), customerID, request.FCMToken, request.APNSToken); err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Device token updated", nil)
}

// DisconnectCustomer removes a customer from the calling business's program.
func (h *AccountHandler) DisconnectCustomer(c *gin.Context) {
	businessID, ok := currentUser(c)
	if !ok {
		return
	}
	customerID, ok := objectIDParam(c, "id", "customer")
	if !ok {
		return
	}

	if err := h.accountService.DisconnectCustomer(c.Request.Context(), businessID, customerID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Customer disconnected", nil)
}
