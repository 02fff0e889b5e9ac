package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TokenStatus string
type TokenKind string

const (
	TokenStatusActive     TokenStatus = "active"
	TokenStatusScanned    TokenStatus = "scanned"
	TokenStatusConfirming TokenStatus = "confirming"
	TokenStatusUsed       TokenStatus = "used"
	TokenStatusExpired    TokenStatus = "expired"
	TokenStatusCancelled  TokenStatus = "cancelled"

	TokenKindCheckIn        TokenKind = "check_in"
	TokenKindGiftRedemption TokenKind = "gift_redemption"
)

// ConfirmClaimTimeout bounds how long a confirm may hold its claim. A token
// still confirming after that belongs to a confirm that never finished, and
// the reaper expires it.
const ConfirmClaimTimeout = time.Minute

// IsTerminal reports whether no further transition may leave s.
func (s TokenStatus) IsTerminal() bool {
	switch s {
	case TokenStatusUsed, TokenStatusExpired, TokenStatusCancelled:
		return true
	}
	return false
}

var tokenTransitions = map[TokenStatus][]TokenStatus{
	TokenStatusActive:     {TokenStatusScanned, TokenStatusConfirming, TokenStatusExpired, TokenStatusCancelled},
	TokenStatusScanned:    {TokenStatusConfirming, TokenStatusExpired, TokenStatusCancelled},
	TokenStatusConfirming: {TokenStatusUsed, TokenStatusActive, TokenStatusScanned, TokenStatusExpired},
}

// CanTransition reports whether from -> to is an edge of the token lifecycle.
// Confirming is held by a single confirm call while it updates the wallet; it
// ends in used, or goes back to the state it was claimed from when the wallet
// rejects the change. Gift redemption tokens may be claimed straight from
// active because the redeeming customer is known when the token is prepared.
func CanTransition(from, to TokenStatus) bool {
	for _, next := range tokenTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TokenPayload is the kind specific data applied when a token is confirmed.
// It is either CheckInPayload or GiftPayload.
type TokenPayload interface {
	tokenKind() TokenKind
}

type CheckInPayload struct{}

func (CheckInPayload) tokenKind() TokenKind { return TokenKindCheckIn }

type GiftPayload struct {
	GiftID         primitive.ObjectID `json:"gift_id" bson:"gift_id"`
	Title          string             `json:"title" bson:"title"`
	PointCost      int64              `json:"point_cost" bson:"point_cost"`
	UseEntitlement bool               `json:"use_entitlement" bson:"use_entitlement"`
}

func (GiftPayload) tokenKind() TokenKind { return TokenKindGiftRedemption }

type QRToken struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Value         string              `json:"token" bson:"token"`
	Kind          TokenKind           `json:"kind" bson:"kind"`
	BusinessID    primitive.ObjectID  `json:"business_id" bson:"business_id"`
	RequestedBy   *primitive.ObjectID `json:"requested_by,omitempty" bson:"requested_by,omitempty"`
	ScannedBy     *primitive.ObjectID `json:"scanned_by,omitempty" bson:"scanned_by,omitempty"`
	Status        TokenStatus         `json:"status" bson:"status"`
	Gift          *GiftPayload        `json:"gift,omitempty" bson:"gift,omitempty"`
	TransactionID *primitive.ObjectID `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	ExpiresAt     time.Time           `json:"expires_at" bson:"expires_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
}

func NewQRToken(value string, businessID primitive.ObjectID, payload TokenPayload, now time.Time, ttl time.Duration) *QRToken {
	token := &QRToken{
		Value:      value,
		Kind:       payload.tokenKind(),
		BusinessID: businessID,
		Status:     TokenStatusActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		UpdatedAt:  now,
	}
	if gift, ok := payload.(GiftPayload); ok {
		token.Gift = &gift
	}
	return token
}

// Payload rebuilds the variant from its stored form.
func (t *QRToken) Payload() TokenPayload {
	if t.Kind == TokenKindGiftRedemption && t.Gift != nil {
		return *t.Gift
	}
	return CheckInPayload{}
}

// EffectiveStatus maps an active or scanned token past its expiry to expired,
// even when the reaper has not rewritten it yet. A confirming token was
// claimed before it expired, so the confirm holding it decides the outcome.
func (t *QRToken) EffectiveStatus(now time.Time) TokenStatus {
	switch t.Status {
	case TokenStatusActive, TokenStatusScanned:
		if !now.Before(t.ExpiresAt) {
			return TokenStatusExpired
		}
	}
	return t.Status
}

// Customer returns who the reward applies to: the customer who prepared a gift
// redemption, otherwise whoever scanned the token.
func (t *QRToken) Customer() (primitive.ObjectID, bool) {
	if t.RequestedBy != nil {
		return *t.RequestedBy, true
	}
	if t.ScannedBy != nil {
		return *t.ScannedBy, true
	}
	return primitive.NilObjectID, false
}

func (t *QRToken) ExpiresIn(now time.Time) time.Duration {
	if remaining := t.ExpiresAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// CustomerStatus is the coarse view of a token given to the customer device.
type CustomerStatus string

const (
	CustomerStatusPending   CustomerStatus = "pending"
	CustomerStatusCompleted CustomerStatus = "completed"
	CustomerStatusCancelled CustomerStatus = "cancelled"
	CustomerStatusExpired   CustomerStatus = "expired"
)

func CoarseStatus(status TokenStatus) CustomerStatus {
	switch status {
	case TokenStatusActive, TokenStatusScanned, TokenStatusConfirming:
		return CustomerStatusPending
	case TokenStatusUsed:
		return CustomerStatusCompleted
	case TokenStatusCancelled:
		return CustomerStatusCancelled
	default:
		return CustomerStatusExpired
	}
}
