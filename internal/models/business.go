package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BusinessSettings struct {
	PointsPercentage float64 `json:"points_percentage" bson:"points_percentage"`
	StampsTarget     int64   `json:"stamps_target" bson:"stamps_target"`
}

type Business struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CompanyName string             `json:"company_name" bson:"company_name"`
	Email       string             `json:"email" bson:"email"`
	Phone       string             `json:"phone" bson:"phone"`
	Address     string             `json:"address" bson:"address"`
	LogoURL     string             `json:"logo_url" bson:"logo_url"`
	StaticQR    string             `json:"static_qr,omitempty" bson:"static_qr,omitempty"`
	Settings    BusinessSettings   `json:"settings" bson:"settings"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// PointsPercentage falls back to def when the business has not configured one.
func (b *Business) PointsPercentage(def float64) float64 {
	if b.Settings.PointsPercentage > 0 {
		return b.Settings.PointsPercentage
	}
	return def
}

func (b *Business) StampsTarget(def int64) int64 {
	if b.Settings.StampsTarget > 0 {
		return b.Settings.StampsTarget
	}
	return def
}

// PointsForPurchase is floor(amount * pct / 100); negative amounts earn nothing.
func PointsForPurchase(amount, percentage float64) int64 {
	if amount <= 0 || percentage <= 0 {
		return 0
	}
	return int64(amount * percentage / 100)
}

// BusinessSummary is the public view handed to customers.
type BusinessSummary struct {
	ID          primitive.ObjectID `json:"id"`
	CompanyName string             `json:"company_name"`
	LogoURL     string             `json:"logo_url,omitempty"`
}

func (b *Business) Summary() BusinessSummary {
	return BusinessSummary{ID: b.ID, CompanyName: b.CompanyName, LogoURL: b.LogoURL}
}
