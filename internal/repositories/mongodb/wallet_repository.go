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

// Two first-time upserts for the same pair can race on the unique index; the
// loser retries and then matches the winner's document.
const upsertAttempts = 2

type walletRepository struct {
	collection *mongo.Collection
}

func NewWalletRepository(db *mongo.Database) interfaces.WalletRepository {
	return &walletRepository{
		collection: db.Collection("customer_businesses"),
	}
}

func walletFilter(customerID, businessID primitive.ObjectID) bson.M {
	return bson.M{"customer_id": customerID, "business_id": businessID}
}

func (r *walletRepository) GetOrCreate(ctx context.Context, customerID, businessID primitive.ObjectID, stampsTarget int64) (*models.Wallet, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"points":        int64(0),
			"stamps":        int64(0),
			"stamps_target": normalizeTarget(stampsTarget),
			"gifts_count":   int64(0),
			"total_visits":  int64(0),
			"joined_at":     now,
			"updated_at":    now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	return r.upsert(ctx, walletFilter(customerID, businessID), update, opts, "get or create wallet")
}

func (r *walletRepository) Get(ctx context.Context, customerID, businessID primitive.ObjectID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.collection.FindOne(ctx, walletFilter(customerID, businessID)).Decode(&wallet); err != nil {
		return nil, wrapError(err, "get wallet")
	}
	return &wallet, nil
}

func (r *walletRepository) ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]*models.Wallet, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"customer_id": customerID}, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find wallets: %w", err)
	}
	defer cursor.Close(ctx)

	var wallets []*models.Wallet
	for cursor.Next(ctx) {
		var wallet models.Wallet
		if err := cursor.Decode(&wallet); err != nil {
			return nil, fmt.Errorf("failed to decode wallet: %w", err)
		}
		wallets = append(wallets, &wallet)
	}

	return wallets, cursor.Err()
}

func (r *walletRepository) Delete(ctx context.Context, customerID, businessID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, walletFilter(customerID, businessID))
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete wallet: %w", interfaces.ErrNotFound)
	}
	return nil
}

// ApplyEarn runs the increment and the stamp rollover as one update pipeline,
// so no reader ever sees stamps >= stamps_target.
func (r *walletRepository) ApplyEarn(ctx context.Context, customerID, businessID primitive.ObjectID, stampsDelta, pointsDelta, stampsTarget int64) (*models.Wallet, error) {
	now := time.Now()
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stamps_target": bson.M{"$max": bson.A{bson.M{"$ifNull": bson.A{"$stamps_target", normalizeTarget(stampsTarget)}}, int64(1)}},
			"joined_at":     bson.M{"$ifNull": bson.A{"$joined_at", now}},
			"_raw":          bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$stamps", int64(0)}}, stampsDelta}},
			"points":        bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$points", int64(0)}}, pointsDelta}},
			"gifts_count":   bson.M{"$ifNull": bson.A{"$gifts_count", int64(0)}},
			"total_visits":  bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$total_visits", int64(0)}}, int64(1)}},
			"updated_at":    now,
		}}},
		{{Key: "$set", Value: bson.M{
			"gifts_count": bson.M{"$add": bson.A{"$gifts_count", bson.M{"$toLong": bson.M{"$floor": bson.M{"$divide": bson.A{"$_raw", "$stamps_target"}}}}}},
			"stamps":      bson.M{"$mod": bson.A{"$_raw", "$stamps_target"}},
		}}},
		{{Key: "$unset", Value: "_raw"}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	return r.upsert(ctx, walletFilter(customerID, businessID), pipeline, opts, "apply earn")
}

func (r *walletRepository) ApplySpend(ctx context.Context, customerID, businessID primitive.ObjectID, pointsCost, gifts int64) (*models.Wallet, error) {
	if pointsCost < 0 || gifts < 0 {
		return nil, fmt.Errorf("apply spend: negative cost")
	}

	filter := walletFilter(customerID, businessID)
	filter["points"] = bson.M{"$gte": pointsCost}
	filter["gifts_count"] = bson.M{"$gte": gifts}

	update := bson.M{
		"$inc": bson.M{"points": -pointsCost, "gifts_count": -gifts},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var wallet models.Wallet
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&wallet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("apply spend: %w", interfaces.ErrInsufficientBalance)
		}
		return nil, fmt.Errorf("failed to apply spend: %w", err)
	}

	return &wallet, nil
}

func (r *walletRepository) upsert(ctx context.Context, filter bson.M, update interface{}, opts *options.FindOneAndUpdateOptions, action string) (*models.Wallet, error) {
	var err error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		var wallet models.Wallet
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&wallet)
		if err == nil {
			return &wallet, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return nil, wrapError(err, action)
}

func normalizeTarget(target int64) int64 {
	if target < 1 {
		return models.DefaultStampsTarget
	}
	return target
}
