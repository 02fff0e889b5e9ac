package mongodb

import (
	"context"
	"fmt"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var transactionSortFields = []string{"created_at", "points_delta", "stamps_delta", "purchase_amount"}

type transactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) interfaces.TransactionRepository {
	return &transactionRepository{
		collection: db.Collection("transactions"),
	}
}

func (r *transactionRepository) Append(ctx context.Context, transaction *models.Transaction) error {
	if transaction.ID.IsZero() {
		transaction.ID = primitive.NewObjectID()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, transaction); err != nil {
		return wrapError(err, "append transaction")
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&transaction); err != nil {
		return nil, wrapError(err, "get transaction")
	}
	return &transaction, nil
}

func (r *transactionRepository) ListByCustomer(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	return r.findWithFilter(ctx, bson.M{"customer_id": customerID}, params)
}

func (r *transactionRepository) ListByBusiness(ctx context.Context, businessID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	return r.findWithFilter(ctx, bson.M{"business_id": businessID}, params)
}

func (r *transactionRepository) ListUnreviewed(ctx context.Context, customerID primitive.ObjectID) ([]*models.Transaction, error) {
	filter := bson.M{
		"customer_id": customerID,
		"category":    models.TransactionCategoryEarn,
		"review_id":   bson.M{"$exists": false},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(utils.MaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to find unreviewed transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	return transactions, nil
}

func (r *transactionRepository) AttachReview(ctx context.Context, id, reviewID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "review_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"review_id": reviewID}},
	)
	if err != nil {
		return fmt.Errorf("failed to attach review: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to attach review: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("attach review: %w", interfaces.ErrNotFound)
	}
	return fmt.Errorf("attach review: %w", interfaces.ErrAlreadyLinked)
}

func (r *transactionRepository) findWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	if params.Search != "" {
		filter = bson.M{"$and": []bson.M{filter, params.GetSearchFilter([]string{"description"})}}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	params.RestrictSort(transactionSortFields...)
	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	for cursor.Next(ctx) {
		var transaction models.Transaction
		if err := cursor.Decode(&transaction); err != nil {
			return nil, 0, fmt.Errorf("failed to decode transaction: %w", err)
		}
		transactions = append(transactions, &transaction)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read transactions: %w", err)
	}

	return transactions, total, nil
}
