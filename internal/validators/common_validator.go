package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"stampcard/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation functions
	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("qr_token", validateQRToken)
	validate.RegisterValidation("rating_value", validateRatingValue)
	validate.RegisterValidation("purchase_amount", validatePurchaseAmount)
}

// Common validation errors
var (
	ErrInvalidObjectID = errors.New("invalid object ID format")
	ErrInvalidQRToken  = errors.New("invalid QR token format")
)

const maxPurchaseAmount = 1_000_000

var qrTokenRegex = regexp.MustCompile(`^[0-9a-f]+$`)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Map flattens the errors into the field -> message form used by the
// validation error response.
func (v ValidationErrors) Map() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		out[err.Field] = err.Message
	}
	return out
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return ValidationErrors{{Field: "request", Tag: "invalid", Message: err.Error()}}
		}
		for _, err := range fieldErrors {
			validationError := ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: getErrorMessage(err),
			}
			validationErrors = append(validationErrors, validationError)
		}
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "object_id":
		return "Invalid ID format"
	case "qr_token":
		return "Invalid QR code"
	case "rating_value":
		return fmt.Sprintf("Rating must be between %d and %d", utils.MinReviewRating, utils.MaxReviewRating)
	case "purchase_amount":
		return "Invalid purchase amount"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// Custom validation functions
func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let required tag handle empty values
	}
	return IsValidObjectID(value)
}

// validateQRToken accepts both dynamic and static code values.
func validateQRToken(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch len(value) {
	case 2 * utils.DynamicTokenBytes, 2 * utils.StaticTokenBytes:
		return qrTokenRegex.MatchString(value)
	}
	return false
}

func validateRatingValue(fl validator.FieldLevel) bool {
	rating := fl.Field().Int()
	return rating >= utils.MinReviewRating && rating <= utils.MaxReviewRating
}

func validatePurchaseAmount(fl validator.FieldLevel) bool {
	amount := fl.Field().Float()
	return amount >= 0 && amount <= maxPurchaseAmount
}

func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func SanitizeInput(input string) string {
	// Remove HTML tags and trim whitespace
	htmlRegex := regexp.MustCompile(`<[^>]*>`)
	cleaned := htmlRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
