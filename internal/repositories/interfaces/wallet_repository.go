package interfaces

import (
	"context"

	"stampcard/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WalletRepository interface {
	GetOrCreate(ctx context.Context, customerID, businessID primitive.ObjectID, stampsTarget int64) (*models.Wallet, error)
	Get(ctx context.Context, customerID, businessID primitive.ObjectID) (*models.Wallet, error)
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]*models.Wallet, error)
	// Delete removes the customer's wallet at a business, ErrNotFound when
	// there is none.
	Delete(ctx context.Context, customerID, businessID primitive.ObjectID) error

	// ApplyEarn adds stamps and points and rolls full stamp sets into gifts in
	// one atomic update, creating the wallet when missing.
	ApplyEarn(ctx context.Context, customerID, businessID primitive.ObjectID, stampsDelta, pointsDelta, stampsTarget int64) (*models.Wallet, error)
	// ApplySpend deducts points and gift entitlements only if the balance
	// still covers them, otherwise ErrInsufficientBalance.
	ApplySpend(ctx context.Context, customerID, businessID primitive.ObjectID, pointsCost, gifts int64) (*models.Wallet, error)
}
