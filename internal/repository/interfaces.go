package repository

import (
	"context"

	"go-capture-inspector/pkg/models"
)

// ImageRepository resolves image references to encoded capture bytes.
type ImageRepository interface {
	// ValidateRef checks the reference before anything is fetched.
	ValidateRef(ref *models.ImageRef) error

	// Load returns the encoded bytes behind ref.
	Load(ctx context.Context, ref *models.ImageRef) ([]byte, error)
}

// RefValidator checks image references against the accepted sources.
type RefValidator interface {
	ValidateRef(ref *models.ImageRef) error
}
