package interfaces

import (
	"context"

	"stampcard/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BusinessRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error)
	GetByStaticQR(ctx context.Context, value string) (*models.Business, error)
	// SetStaticQR stores value. With onlyIfUnset it leaves an existing value
	// in place and reports false.
	SetStaticQR(ctx context.Context, id primitive.ObjectID, value string, onlyIfUnset bool) (bool, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	UpdateDeviceTokens(ctx context.Context, id primitive.ObjectID, fcmToken, apnsToken string) error
}

type GiftRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Gift, error)
	ListByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]*models.Gift, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
