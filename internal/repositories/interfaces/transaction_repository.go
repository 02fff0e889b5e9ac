package interfaces

import (
	"context"

	"stampcard/internal/models"
	"stampcard/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionRepository interface {
	Append(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error)
	ListByBusiness(ctx context.Context, businessID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error)
	ListUnreviewed(ctx context.Context, customerID primitive.ObjectID) ([]*models.Transaction, error)

	// AttachReview sets review_id once; ErrAlreadyLinked when it is already set.
	AttachReview(ctx context.Context, id, reviewID primitive.ObjectID) error
}
