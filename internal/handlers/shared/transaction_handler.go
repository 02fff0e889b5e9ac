package handlers

import (
	"stampcard/internal/models"
	"stampcard/internal/services"
	"stampcard/internal/utils"
	"stampcard/internal/validators"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionHandler struct {
	transactionService services.TransactionService
	logger             *logger.Logger
}

func NewTransactionHandler(transactionService services.TransactionService, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             log,
	}
}

// GetTransactions lists the caller's history; customers see their own
// transactions and businesses see those recorded at their counter
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	var (
		transactions []*models.Transaction
		total        int64
		err          error
	)
	if models.UserRole(c.GetString(utils.ContextUserRole)) == models.UserRoleBusiness {
		transactions, total, err = h.transactionService.ListBusinessTransactions(c.Request.Context(), userID, params)
	} else {
		transactions, total, err = h.transactionService.ListCustomerTransactions(c.Request.Context(), userID, params)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.PaginatedResponse(c, "Transactions retrieved", transactions, params, total)
}

func (h *TransactionHandler) GetPendingReviews(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	transactions, err := h.transactionService.ListPendingReviews(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Pending reviews retrieved", gin.H{"transactions": transactions})
}

func (h *TransactionHandler) SubmitReview(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	var request validators.ReviewCreateRequest
	if !bindJSON(c, &request) {
		return
	}
	request.TransactionID = c.Param("id")
	if validationFailed(c, validators.ValidateReviewCreate(&request)) {
		return
	}
	transactionID, _ := primitive.ObjectIDFromHex(request.TransactionID)

	review, err := h.transactionService.SubmitReview(c.Request.Context(), customerID, transactionID, request.Rating, request.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, "Review submitted", review)
}
