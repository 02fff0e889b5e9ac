package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventType string

const (
	EventTokenScanned   EventType = "token_scanned"
	EventTokenCompleted EventType = "token_completed"
	EventTokenCancelled EventType = "token_cancelled"

	EventUserDisconnected EventType = "user_disconnected"
)

// Event is published on the realtime channel and pushed to devices.
type Event struct {
	Type      EventType              `json:"type"`
	UserID    primitive.ObjectID     `json:"user_id"`
	Role      UserRole               `json:"role"`
	Title     string                 `json:"title,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
