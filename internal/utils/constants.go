package utils

// Application Constants
const (
	AppName = "Stampcard"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// QR tokens
	DynamicTokenBytes = 16
	StaticTokenBytes  = 32

	// Reviews
	MinReviewRating = 1
	MaxReviewRating = 5
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidToken     = "invalid token"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrNotFound         = "not found"
	ErrValidationFailed = "validation failed"
	ErrUnavailable      = "service temporarily unavailable"
	ErrTooManyRequests  = "too many requests"
)

// Error Codes
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidOrExpired    = "INVALID_OR_EXPIRED"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeFirmMismatch        = "FIRM_MISMATCH"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeDuplicateValue      = "DUPLICATE_VALUE"
	CodeAlreadyReviewed     = "ALREADY_REVIEWED"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeRateLimited         = "RATE_LIMITED"
)

// Cache Keys
const (
	CacheBusinessPrefix  = "business:"
	CacheRateLimitPrefix = "rate_limit:"
)

// Context Keys
const (
	ContextUserID    = "user_id"
	ContextUserRole  = "user_role"
	ContextRequestID = "request_id"
)
