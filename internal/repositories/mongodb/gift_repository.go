package mongodb

import (
	"context"
	"fmt"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type giftRepository struct {
	collection *mongo.Collection
}

func NewGiftRepository(db *mongo.Database) interfaces.GiftRepository {
	return &giftRepository{
		collection: db.Collection("gifts"),
	}
}

func (r *giftRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Gift, error) {
	var gift models.Gift
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&gift); err != nil {
		return nil, wrapError(err, "get gift")
	}
	return &gift, nil
}

func (r *giftRepository) ListByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]*models.Gift, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"business_id": businessID, "is_active": true},
		options.Find().SetSort(bson.D{{Key: "point_cost", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find gifts: %w", err)
	}
	defer cursor.Close(ctx)

	var gifts []*models.Gift
	if err := cursor.All(ctx, &gifts); err != nil {
		return nil, fmt.Errorf("failed to decode gifts: %w", err)
	}
	return gifts, nil
}
