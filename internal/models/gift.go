package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Gift struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BusinessID  primitive.ObjectID `json:"business_id" bson:"business_id"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	PointCost   int64              `json:"point_cost" bson:"point_cost"`
	ImageURL    string             `json:"image_url" bson:"image_url"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}
