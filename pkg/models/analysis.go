package models

// DocumentType names the kind of identity document being validated.
type DocumentType string

const (
	DocumentTypeYemenID  DocumentType = "yemen_id"
	DocumentTypePassport DocumentType = "passport"
)

// Valid reports whether the document type is supported.
func (d DocumentType) Valid() bool {
	return d == DocumentTypeYemenID || d == DocumentTypePassport
}

// ValidationResult is the verdict for a document capture.
// Passed is exactly the AND of the mandated checks for the document type.
type ValidationResult struct {
	Passed       bool                   `json:"passed"`
	DocumentType DocumentType           `json:"document_type"`
	Checks       map[string]CheckResult `json:"checks"`
	ChecksBack   map[string]CheckResult `json:"checks_back,omitempty"`
	Error        *string                `json:"error"`
}

// LivenessResult is the verdict for a selfie capture.
type LivenessResult struct {
	IsLive             bool                   `json:"is_live"`
	Confidence         float64                `json:"confidence"`
	SpoofProbability   float64                `json:"spoof_probability"`
	Checks             map[string]CheckResult `json:"checks"`
	SameSourceOverride bool                   `json:"same_source_override"`
	Error              *string                `json:"error"`
}

// ImageMetadata describes a decoded capture.
type ImageMetadata struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Format   string `json:"format"`
}
