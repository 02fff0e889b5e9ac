package mongodb

import (
	"context"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const businessCacheTTL = 10 * time.Minute

type businessRepository struct {
	collection *mongo.Collection
	cache      interfaces.Cache
}

func NewBusinessRepository(db *mongo.Database, cache interfaces.Cache) interfaces.BusinessRepository {
	return &businessRepository{
		collection: db.Collection("businesses"),
		cache:      cache,
	}
}

func (r *businessRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error) {
	if business := r.getFromCache(ctx, id); business != nil {
		return business, nil
	}

	var business models.Business
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&business); err != nil {
		return nil, wrapError(err, "get business")
	}

	r.cacheBusiness(ctx, &business)
	return &business, nil
}

func (r *businessRepository) GetByStaticQR(ctx context.Context, value string) (*models.Business, error) {
	var business models.Business
	if err := r.collection.FindOne(ctx, bson.M{"static_qr": value}).Decode(&business); err != nil {
		return nil, wrapError(err, "get business by static qr")
	}
	return &business, nil
}

func (r *businessRepository) SetStaticQR(ctx context.Context, id primitive.ObjectID, value string, onlyIfUnset bool) (bool, error) {
	filter := bson.M{"_id": id}
	if onlyIfUnset {
		filter["$or"] = bson.A{
			bson.M{"static_qr": bson.M{"$exists": false}},
			bson.M{"static_qr": ""},
		}
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"static_qr": value, "updated_at": time.Now()}})
	if err != nil {
		return false, wrapError(err, "set static qr")
	}

	r.invalidateCache(ctx, id)
	return result.MatchedCount > 0, nil
}

func businessCacheKey(id primitive.ObjectID) string {
	return utils.CacheBusinessPrefix + id.Hex()
}

func (r *businessRepository) cacheBusiness(ctx context.Context, business *models.Business) {
	if r.cache != nil {
		_ = r.cache.Set(ctx, businessCacheKey(business.ID), business, businessCacheTTL)
	}
}

func (r *businessRepository) getFromCache(ctx context.Context, id primitive.ObjectID) *models.Business {
	if r.cache == nil {
		return nil
	}

	var business models.Business
	if err := r.cache.Get(ctx, businessCacheKey(id), &business); err != nil {
		return nil
	}
	return &business
}

func (r *businessRepository) invalidateCache(ctx context.Context, id primitive.ObjectID) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, businessCacheKey(id))
	}
}
