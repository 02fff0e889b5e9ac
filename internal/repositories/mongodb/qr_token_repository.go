package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type qrTokenRepository struct {
	collection *mongo.Collection
}

func NewQRTokenRepository(db *mongo.Database) interfaces.QRTokenRepository {
	return &qrTokenRepository{
		collection: db.Collection("qr_tokens"),
	}
}

func (r *qrTokenRepository) Create(ctx context.Context, token *models.QRToken) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	token.UpdatedAt = token.CreatedAt

	if _, err := r.collection.InsertOne(ctx, token); err != nil {
		return wrapError(err, "create qr token")
	}
	return nil
}

func (r *qrTokenRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.QRToken, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *qrTokenRepository) GetByValue(ctx context.Context, value string) (*models.QRToken, error) {
	return r.findOne(ctx, bson.M{"token": value}, nil)
}

func (r *qrTokenRepository) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, transition interfaces.TokenTransition) (*models.QRToken, error) {
	if err := transition.Validate(); err != nil {
		return nil, err
	}

	now := transition.Now
	if now.IsZero() {
		now = time.Now()
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": transition.From},
	}
	if transition.Unexpired {
		filter["expires_at"] = bson.M{"$gt": now}
	}

	set := bson.M{
		"status":     transition.To,
		"updated_at": now,
	}
	if transition.ScannedBy != nil {
		set["scanned_by"] = *transition.ScannedBy
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var token models.QRToken
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("set qr token %s to %s: %w", id.Hex(), transition.To, interfaces.ErrTransitionConflict)
		}
		return nil, fmt.Errorf("failed to update qr token status: %w", err)
	}

	return &token, nil
}

func (r *qrTokenRepository) LinkTransaction(ctx context.Context, id, transactionID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"transaction_id": transactionID, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to link transaction to qr token: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("link transaction to qr token %s: %w", id.Hex(), interfaces.ErrNotFound)
	}
	return nil
}

func (r *qrTokenRepository) FindLatestScanned(ctx context.Context, businessID primitive.ObjectID, now time.Time) (*models.QRToken, error) {
	filter := bson.M{
		"business_id": businessID,
		"status":      models.TokenStatusScanned,
		"expires_at":  bson.M{"$gt": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

func (r *qrTokenRepository) FindActiveGiftForCustomer(ctx context.Context, customerID, businessID primitive.ObjectID, now time.Time) (*models.QRToken, error) {
	filter := bson.M{
		"business_id":  businessID,
		"requested_by": customerID,
		"kind":         models.TokenKindGiftRedemption,
		"status":       models.TokenStatusActive,
		"expires_at":   bson.M{"$gt": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

func (r *qrTokenRepository) CancelForCustomer(ctx context.Context, customerID, businessID primitive.ObjectID, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"business_id": businessID,
			"status":      bson.M{"$in": []models.TokenStatus{models.TokenStatusActive, models.TokenStatusScanned}},
			"$or": bson.A{
				bson.M{"requested_by": customerID},
				bson.M{"scanned_by": customerID},
			},
		},
		bson.M{"$set": bson.M{"status": models.TokenStatusCancelled, "updated_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel customer qr tokens: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *qrTokenRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{"$or": bson.A{
			bson.M{
				"status":     bson.M{"$in": []models.TokenStatus{models.TokenStatusActive, models.TokenStatusScanned}},
				"expires_at": bson.M{"$lte": now},
			},
			bson.M{
				"status":     models.TokenStatusConfirming,
				"updated_at": bson.M{"$lte": now.Add(-models.ConfirmClaimTimeout)},
			},
		}},
		bson.M{"$set": bson.M{"status": models.TokenStatusExpired, "updated_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale qr tokens: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *qrTokenRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"status":     bson.M{"$in": []models.TokenStatus{models.TokenStatusExpired, models.TokenStatusCancelled, models.TokenStatusUsed}},
		"updated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old qr tokens: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *qrTokenRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.QRToken, error) {
	var token models.QRToken
	findOpts := []*options.FindOneOptions{}
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	if err := r.collection.FindOne(ctx, filter, findOpts...).Decode(&token); err != nil {
		return nil, wrapError(err, "find qr token")
	}
	return &token, nil
}
