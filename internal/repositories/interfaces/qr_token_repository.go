package interfaces

import (
	"context"
	"fmt"
	"time"

	"stampcard/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenTransition describes one conditional status change.
type TokenTransition struct {
	From []models.TokenStatus
	To   models.TokenStatus
	// ScannedBy is recorded together with the new status when set.
	ScannedBy *primitive.ObjectID
	// Unexpired additionally requires expires_at > Now.
	Unexpired bool
	Now       time.Time
}

// Validate rejects transitions the token lifecycle does not allow from every
// From state, before any store is touched.
func (t TokenTransition) Validate() error {
	if len(t.From) == 0 {
		return fmt.Errorf("%w: no source state for %s", ErrIllegalTransition, t.To)
	}
	for _, from := range t.From {
		if !models.CanTransition(from, t.To) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, t.To)
		}
	}
	return nil
}

type QRTokenRepository interface {
	Create(ctx context.Context, token *models.QRToken) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.QRToken, error)
	GetByValue(ctx context.Context, value string) (*models.QRToken, error)

	// CompareAndSetStatus is the only way a single token's status changes. It
	// returns the updated token, ErrIllegalTransition when the lifecycle has no
	// such edge, or ErrTransitionConflict when the token is not in one of the
	// From states (or has expired, with Unexpired).
	CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, transition TokenTransition) (*models.QRToken, error)
	LinkTransaction(ctx context.Context, id, transactionID primitive.ObjectID) error
	// CancelForCustomer cancels the customer's active and scanned tokens at a
	// business. Tokens held by a running confirm are left to finish.
	CancelForCustomer(ctx context.Context, customerID, businessID primitive.ObjectID, now time.Time) (int64, error)

	// Polling
	FindLatestScanned(ctx context.Context, businessID primitive.ObjectID, now time.Time) (*models.QRToken, error)
	FindActiveGiftForCustomer(ctx context.Context, customerID, businessID primitive.ObjectID, now time.Time) (*models.QRToken, error)

	// Housekeeping. ExpireStale also expires confirm claims older than
	// models.ConfirmClaimTimeout.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
