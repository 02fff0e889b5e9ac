package mongodb

import (
	"errors"
	"fmt"

	"stampcard/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/mongo"
)

// wrapError maps driver errors onto the repository sentinels so callers can
// use errors.Is without importing the driver.
func wrapError(err error, action string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", action, interfaces.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", action, interfaces.ErrDuplicateKey)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}
