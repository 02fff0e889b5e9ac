package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stampcard/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(context.Context, *mongo.Database) error
	Down        func(context.Context, *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	logger     *logger.Logger
	migrations []Migration
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		logger:     log,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.logger.WithFields(logger.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Running migration")

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version > currentVersion || migration.Version <= targetVersion {
			continue
		}

		m.logger.WithField("version", migration.Version).Info("Reverting migration")

		if err := migration.Down(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
		}

		previousVersion := targetVersion
		if i > 0 {
			previousVersion = m.migrations[i-1].Version
		}

		if err := m.updateVersion(ctx, previousVersion); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection("migrations").FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection("migrations").ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)
	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create qr_tokens indexes",
			Up:          createQRTokenIndexes,
			Down:        dropIndexes("qr_tokens"),
		},
		{
			Version:     2,
			Description: "Create customer_businesses indexes",
			Up:          createWalletIndexes,
			Down:        dropIndexes("customer_businesses"),
		},
		{
			Version:     3,
			Description: "Create transactions indexes",
			Up:          createTransactionIndexes,
			Down:        dropIndexes("transactions"),
		},
		{
			Version:     4,
			Description: "Create businesses, gifts and reviews indexes",
			Up:          createCatalogIndexes,
			Down: func(ctx context.Context, db *mongo.Database) error {
				for _, name := range []string{"businesses", "gifts", "reviews"} {
					if err := dropIndexes(name)(ctx, db); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

func createQRTokenIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "status", Value: 1}, {Key: "updated_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "requested_by", Value: 1}, {Key: "business_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{
				"requested_by": bson.M{"$exists": true},
			}),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
		},
	}

	return createIndexes(ctx, db, "qr_tokens", indexes)
}

func createWalletIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "business_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "business_id", Value: 1}},
		},
	}

	return createIndexes(ctx, db, "customer_businesses", indexes)
}

func createTransactionIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "qr_token_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"qr_token_id": bson.M{"$exists": true},
			}),
		},
	}

	return createIndexes(ctx, db, "transactions", indexes)
}

func createCatalogIndexes(ctx context.Context, db *mongo.Database) error {
	if err := createIndexes(ctx, db, "businesses", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "static_qr", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"static_qr": bson.M{"$type": "string"},
			}),
		},
	}); err != nil {
		return err
	}

	if err := createIndexes(ctx, db, "gifts", []mongo.IndexModel{
		{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "point_cost", Value: 1}}},
	}); err != nil {
		return err
	}

	return createIndexes(ctx, db, "reviews", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}

func createIndexes(ctx context.Context, db *mongo.Database, collection string, indexes []mongo.IndexModel) error {
	if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", collection, err)
	}
	return nil
}

func dropIndexes(collection string) func(context.Context, *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		_, err := db.Collection(collection).Indexes().DropAll(ctx)
		return err
	}
}
