package validators

type ReviewCreateRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,object_id"`
	Rating        int    `json:"rating" validate:"required,rating_value"`
	Comment       string `json:"comment" validate:"omitempty,max=1000"`
}

func ValidateReviewCreate(req *ReviewCreateRequest) ValidationErrors {
	req.Comment = SanitizeInput(req.Comment)
	return ValidateStruct(req)
}
