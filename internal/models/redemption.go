package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssuedToken is what a terminal or customer app renders as a QR code.
type IssuedToken struct {
	ID        primitive.ObjectID `json:"token_id"`
	Value     string             `json:"token"`
	Kind      TokenKind          `json:"kind"`
	ExpiresAt time.Time          `json:"expires_at"`
	ExpiresIn int64              `json:"expires_in"`
	Gift      *GiftPayload       `json:"gift,omitempty"`
}

func NewIssuedToken(token *QRToken, now time.Time) *IssuedToken {
	return &IssuedToken{
		ID:        token.ID,
		Value:     token.Value,
		Kind:      token.Kind,
		ExpiresAt: token.ExpiresAt,
		ExpiresIn: int64(token.ExpiresIn(now).Seconds()),
		Gift:      token.Gift,
	}
}

type SubmitResult struct {
	Token    *IssuedToken    `json:"qr_token"`
	Status   TokenStatus     `json:"status"`
	Business BusinessSummary `json:"business"`
}

type ConfirmRequest struct {
	TokenID        primitive.ObjectID `json:"qr_token_id"`
	StampCount     int64              `json:"stamp_count"`
	PurchaseAmount float64            `json:"purchase_amount"`
}

type ConfirmResult struct {
	TokenID       primitive.ObjectID  `json:"qr_token_id"`
	TransactionID *primitive.ObjectID `json:"transaction_id,omitempty"`
	Type          TransactionType     `json:"type"`
	PointsDelta   int64               `json:"points_delta"`
	StampsDelta   int64               `json:"stamps_delta"`
	GiftsDelta    int64               `json:"gifts_delta"`
	Wallet        *Wallet             `json:"wallet"`
}

type CustomerPoll struct {
	Status        CustomerStatus      `json:"status"`
	TokenID       *primitive.ObjectID `json:"qr_token_id,omitempty"`
	TransactionID *primitive.ObjectID `json:"transaction_id,omitempty"`
	ExpiresIn     int64               `json:"expires_in"`
}

const BusinessPollWaiting = "waiting"

type BusinessPoll struct {
	Status   string           `json:"status"`
	Token    *IssuedToken     `json:"qr_token,omitempty"`
	Customer *CustomerSummary `json:"customer,omitempty"`
	Wallet   *Wallet          `json:"wallet,omitempty"`
}

type BusinessTokenStatus struct {
	Token         *IssuedToken        `json:"qr_token"`
	Status        TokenStatus         `json:"status"`
	Customer      *CustomerSummary    `json:"customer,omitempty"`
	Wallet        *Wallet             `json:"wallet,omitempty"`
	TransactionID *primitive.ObjectID `json:"transaction_id,omitempty"`
}

type GiftVerification struct {
	Token      *IssuedToken    `json:"qr_token"`
	Status     TokenStatus     `json:"status"`
	Gift       GiftPayload     `json:"gift"`
	Customer   CustomerSummary `json:"customer"`
	Wallet     *Wallet         `json:"wallet"`
	Sufficient bool            `json:"sufficient"`
}
