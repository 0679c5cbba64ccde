package models

// ImageRef points at capture bytes: exactly one of URL or Data (base64).
type ImageRef struct {
	URL  string `json:"url,omitempty"`
	Data string `json:"data,omitempty"`
}

// IsZero reports whether neither source was supplied.
func (r *ImageRef) IsZero() bool {
	return r == nil || (r.URL == "" && r.Data == "")
}

// DocumentValidationRequest is the body of POST /v1/documents/validate.
type DocumentValidationRequest struct {
	DocumentType DocumentType `json:"document_type" binding:"required,oneof=yemen_id passport"`
	Front        ImageRef     `json:"front"`
	Back         *ImageRef    `json:"back,omitempty"`
	OCR          *OCRResult   `json:"ocr,omitempty"`
	Face         *FaceResult  `json:"face,omitempty"`
}

// LivenessRequest is the body of POST /v1/liveness.
type LivenessRequest struct {
	Selfie           ImageRef    `json:"selfie"`
	SelfieFace       *FaceResult `json:"selfie_face,omitempty"`
	DocumentFace     *FaceResult `json:"document_face,omitempty"`
	SpoofProbability *float64    `json:"spoof_probability,omitempty" binding:"omitempty,gte=0,lte=1"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
