package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultStampsTarget = 6

// Wallet is the loyalty balance of one customer at one business.
type Wallet struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CustomerID   primitive.ObjectID `json:"customer_id" bson:"customer_id"`
	BusinessID   primitive.ObjectID `json:"business_id" bson:"business_id"`
	Points       int64              `json:"points" bson:"points"`
	Stamps       int64              `json:"stamps" bson:"stamps"`
	StampsTarget int64              `json:"stamps_target" bson:"stamps_target"`
	GiftsCount   int64              `json:"gifts_count" bson:"gifts_count"`
	TotalVisits  int64              `json:"total_visits" bson:"total_visits"`
	JoinedAt     time.Time          `json:"joined_at" bson:"joined_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// RollStamps converts every full set of stamps into a gift. The mongodb
// ledger computes the same result inside its update pipeline.
func RollStamps(stamps, target int64) (remaining, gifts int64) {
	if target < 1 {
		target = DefaultStampsTarget
	}
	if stamps < 0 {
		return 0, 0
	}
	return stamps % target, stamps / target
}

// Earn applies an earn in memory with the same rollover rule.
func (w *Wallet) Earn(stampsDelta, pointsDelta int64, now time.Time) {
	if w.StampsTarget < 1 {
		w.StampsTarget = DefaultStampsTarget
	}
	remaining, gifts := RollStamps(w.Stamps+stampsDelta, w.StampsTarget)
	w.Stamps = remaining
	w.GiftsCount += gifts
	w.Points += pointsDelta
	w.TotalVisits++
	w.UpdatedAt = now
}

// CanSpend reports whether the balance covers the cost.
func (w *Wallet) CanSpend(pointsCost, gifts int64) bool {
	return w.Points >= pointsCost && w.GiftsCount >= gifts
}
