package services

import (
	"errors"
	"fmt"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTokenNotFound       = errors.New("qr token not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrBusinessNotFound    = errors.New("business not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrGiftNotFound        = errors.New("gift not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidOrExpired    = errors.New("qr code is invalid or expired")
	ErrInvalidTransition   = errors.New("qr code has already been finalized")
	ErrFirmMismatch        = errors.New("qr code belongs to a different business")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateValue      = errors.New("qr token value already exists")
	ErrAlreadyReviewed     = errors.New("transaction already reviewed")
	ErrForbidden           = errors.New("not allowed for this caller")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)

// FirmMismatchError is returned when a customer scans a code that belongs to
// a business other than the one the app expected.
type FirmMismatchError struct {
	Expected primitive.ObjectID
	Actual   primitive.ObjectID
}

func (e *FirmMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrFirmMismatch, e.Expected.Hex(), e.Actual.Hex())
}

func (e *FirmMismatchError) Unwrap() error {
	return ErrFirmMismatch
}

// TransitionError reports an attempt to move a token that is terminal or held
// by a running confirm. It matches both ErrInvalidTransition and
// ErrInvalidOrExpired.
type TransitionError struct {
	TokenID primitive.ObjectID
	From    models.TokenStatus
	To      models.TokenStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidOrExpired
}

// notFound translates a repository miss into the given domain error and
// passes anything else through.
func notFound(err error, domain error) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return domain
	}
	return err
}
