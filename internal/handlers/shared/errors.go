package handlers

import (
	"errors"
	"net/http"

	"stampcard/internal/services"
	"stampcard/internal/utils"
	"stampcard/internal/validators"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError maps a service error onto the API error envelope. Anything
// unrecognised is a storage or infrastructure failure.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var mismatch *services.FirmMismatchError
	switch {
	case errors.As(err, &mismatch):
		utils.ErrorResponseWithDetails(c, http.StatusBadRequest, utils.CodeFirmMismatch, services.ErrFirmMismatch.Error(), map[string]string{
			"expected_business_id": mismatch.Expected.Hex(),
			"actual_business_id":   mismatch.Actual.Hex(),
		})
	case errors.Is(err, services.ErrInvalidTransition):
		utils.ConflictResponse(c, utils.CodeInvalidTransition, err.Error())
	case errors.Is(err, services.ErrInvalidOrExpired):
		utils.ConflictResponse(c, utils.CodeInvalidOrExpired, services.ErrInvalidOrExpired.Error())
	case errors.Is(err, services.ErrDuplicateValue):
		utils.ConflictResponse(c, utils.CodeDuplicateValue, err.Error())
	case errors.Is(err, services.ErrAlreadyReviewed):
		utils.ConflictResponse(c, utils.CodeAlreadyReviewed, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		utils.UnprocessableResponse(c, utils.CodeInsufficientBalance, err.Error())
	case errors.Is(err, services.ErrTokenNotFound):
		utils.NotFoundResponse(c, "QR token")
	case errors.Is(err, services.ErrWalletNotFound):
		utils.NotFoundResponse(c, "Wallet")
	case errors.Is(err, services.ErrBusinessNotFound):
		utils.NotFoundResponse(c, "Business")
	case errors.Is(err, services.ErrCustomerNotFound):
		utils.NotFoundResponse(c, "Customer")
	case errors.Is(err, services.ErrGiftNotFound):
		utils.NotFoundResponse(c, "Gift")
	case errors.Is(err, services.ErrTransactionNotFound):
		utils.NotFoundResponse(c, "Transaction")
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c)
	case errors.Is(err, services.ErrInvalidRating):
		utils.BadRequestResponse(c, err.Error())
	default:
		log.WithContext(c.Request.Context()).WithError(err).Error("Request failed")
		utils.ServiceUnavailableResponse(c)
	}
}

// bindJSON decodes the body and reports a 400 on malformed JSON.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return false
	}
	return true
}

func validationFailed(c *gin.Context, errs validators.ValidationErrors) bool {
	if len(errs) == 0 {
		return false
	}
	utils.ValidationErrorResponse(c, errs.Map())
	return true
}

// currentUser returns the caller set by the auth middleware.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get(utils.ContextUserID)
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	if !ok {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}
	return id, true
}

func objectIDParam(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+label+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
