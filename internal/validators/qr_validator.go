package validators

import (
	"strings"

	"stampcard/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubmitTokenRequest struct {
	Token      string `json:"token" validate:"required,qr_token"`
	BusinessID string `json:"expected_business_id" validate:"omitempty,object_id"`
}

type ConfirmTokenRequest struct {
	TokenID        string  `json:"qr_token_id" validate:"required,object_id"`
	StampCount     int64   `json:"stamp_count" validate:"min=0,max=100"`
	PurchaseAmount float64 `json:"purchase_amount" validate:"purchase_amount"`
}

type CancelTokenRequest struct {
	TokenID string `json:"qr_token_id" validate:"required,object_id"`
}

type PrepareGiftRequest struct {
	BusinessID     string `json:"business_id" validate:"required,object_id"`
	GiftID         string `json:"gift_id" validate:"omitempty,object_id"`
	UseEntitlement bool   `json:"use_entitlement"`
}

type DeviceTokenRequest struct {
	FCMToken  string `json:"fcm_token" validate:"omitempty,max=4096"`
	APNSToken string `json:"apns_token" validate:"omitempty,max=200"`
}

func ValidateSubmitToken(req *SubmitTokenRequest) ValidationErrors {
	req.Token = strings.ToLower(strings.TrimSpace(req.Token))
	return ValidateStruct(req)
}

// ExpectedBusiness is the business the scanning app believes it is at, if
// it sent one.
func (r *SubmitTokenRequest) ExpectedBusiness() *primitive.ObjectID {
	if r.BusinessID == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(r.BusinessID)
	if err != nil {
		return nil
	}
	return &id
}

func ValidateConfirmToken(req *ConfirmTokenRequest) ValidationErrors {
	return ValidateStruct(req)
}

func (r *ConfirmTokenRequest) ToModel() *models.ConfirmRequest {
	id, _ := primitive.ObjectIDFromHex(r.TokenID)
	return &models.ConfirmRequest{
		TokenID:        id,
		StampCount:     r.StampCount,
		PurchaseAmount: r.PurchaseAmount,
	}
}

func ValidatePrepareGift(req *PrepareGiftRequest) ValidationErrors {
	errors := ValidateStruct(req)

	switch {
	case req.GiftID == "" && !req.UseEntitlement:
		errors = append(errors, ValidationError{
			Field:   "GiftID",
			Tag:     "required_without",
			Message: "gift_id is required unless use_entitlement is set",
		})
	case req.GiftID != "" && req.UseEntitlement:
		errors = append(errors, ValidationError{
			Field:   "GiftID",
			Tag:     "excluded_with",
			Value:   req.GiftID,
			Message: "gift_id cannot be combined with use_entitlement",
		})
	}

	return errors
}

func ValidateDeviceToken(req *DeviceTokenRequest) ValidationErrors {
	errors := ValidateStruct(req)
	if req.FCMToken == "" && req.APNSToken == "" {
		errors = append(errors, ValidationError{
			Field:   "FCMToken",
			Tag:     "required_without",
			Message: "fcm_token or apns_token is required",
		})
	}
	return errors
}
