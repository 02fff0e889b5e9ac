package interfaces

import "errors"

var (
	ErrNotFound            = errors.New("document not found")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrTransitionConflict  = errors.New("token status changed concurrently")
	ErrIllegalTransition   = errors.New("transition not allowed by token lifecycle")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyLinked       = errors.New("reference already set")
)
