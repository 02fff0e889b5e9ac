package mongodb

import (
	"context"
	"fmt"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type customerRepository struct {
	collection *mongo.Collection
}

func NewCustomerRepository(db *mongo.Database) interfaces.CustomerRepository {
	return &customerRepository{
		collection: db.Collection("customers"),
	}
}

func (r *customerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&customer); err != nil {
		return nil, wrapError(err, "get customer")
	}
	return &customer, nil
}

func (r *customerRepository) UpdateDeviceTokens(ctx context.Context, id primitive.ObjectID, fcmToken, apnsToken string) error {
	set := bson.M{"updated_at": time.Now()}
	if fcmToken != "" {
		set["fcm_token"] = fcmToken
	}
	if apnsToken != "" {
		set["apns_token"] = apnsToken
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update device tokens: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update device tokens: %w", interfaces.ErrNotFound)
	}
	return nil
}
