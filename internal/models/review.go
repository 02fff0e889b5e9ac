package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CustomerID    primitive.ObjectID `json:"customer_id" bson:"customer_id"`
	BusinessID    primitive.ObjectID `json:"business_id" bson:"business_id"`
	TransactionID primitive.ObjectID `json:"transaction_id" bson:"transaction_id"`
	Rating        int                `json:"rating" bson:"rating"`
	Comment       string             `json:"comment" bson:"comment"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}
