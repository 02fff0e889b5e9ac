package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleBusiness UserRole = "business"
	UserRoleAdmin    UserRole = "admin"
)

type Customer struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Surname     string             `json:"surname" bson:"surname"`
	Email       string             `json:"email" bson:"email"`
	PhoneNumber string             `json:"phone_number" bson:"phone_number"`
	FCMToken    string             `json:"-" bson:"fcm_token,omitempty"`
	APNSToken   string             `json:"-" bson:"apns_token,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// CustomerSummary is what a business terminal sees about a scanning customer.
type CustomerSummary struct {
	ID      primitive.ObjectID `json:"id"`
	Name    string             `json:"name"`
	Surname string             `json:"surname"`
}

func (c *Customer) Summary() CustomerSummary {
	return CustomerSummary{ID: c.ID, Name: c.Name, Surname: c.Surname}
}
