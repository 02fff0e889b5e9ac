package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string
type TransactionCategory string

const (
	TransactionTypeStampEarn  TransactionType = "stamp_earn"
	TransactionTypePointEarn  TransactionType = "point_earn"
	TransactionTypeGiftRedeem TransactionType = "gift_redeem"

	TransactionCategoryEarn  TransactionCategory = "earn"
	TransactionCategorySpend TransactionCategory = "spend"
)

// Transaction is an append-only record of a reward that was granted or spent.
// Only ReviewID may change after insertion.
type Transaction struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	CustomerID     primitive.ObjectID  `json:"customer_id" bson:"customer_id"`
	BusinessID     primitive.ObjectID  `json:"business_id" bson:"business_id"`
	Type           TransactionType     `json:"type" bson:"type"`
	Category       TransactionCategory `json:"category" bson:"category"`
	PointsDelta    int64               `json:"points_delta" bson:"points_delta"`
	StampsDelta    int64               `json:"stamps_delta" bson:"stamps_delta"`
	GiftsDelta     int64               `json:"gifts_delta" bson:"gifts_delta"`
	PurchaseAmount float64             `json:"purchase_amount" bson:"purchase_amount"`
	Description    string              `json:"description" bson:"description"`
	QRTokenID      *primitive.ObjectID `json:"qr_token_id,omitempty" bson:"qr_token_id,omitempty"`
	ReviewID       *primitive.ObjectID `json:"review_id,omitempty" bson:"review_id,omitempty"`
	CreatedAt      time.Time           `json:"created_at" bson:"created_at"`
}
