package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/internal/storage"
	"go-capture-inspector/pkg/models"
)

// CaptureRepository implements ImageRepository over inline base64 data,
// HTTP(S) URLs and, when configured, Azure blob URLs.
type CaptureRepository struct {
	validator RefValidator
	fetcher   storage.ImageFetcher
	blobs     storage.BlobStorage
}

// NewCaptureRepository creates a repository. blobs may be nil.
func NewCaptureRepository(validator RefValidator, fetcher storage.ImageFetcher, blobs storage.BlobStorage) ImageRepository {
	return &CaptureRepository{
		validator: validator,
		fetcher:   fetcher,
		blobs:     blobs,
	}
}

func (r *CaptureRepository) ValidateRef(ref *models.ImageRef) error {
	return r.validator.ValidateRef(ref)
}

func (r *CaptureRepository) Load(ctx context.Context, ref *models.ImageRef) ([]byte, error) {
	if err := r.ValidateRef(ref); err != nil {
		return nil, err
	}
	if ref.Data != "" {
		data, err := decodeInline(ref.Data)
		if err != nil {
			return nil, apperrors.NewInputError("image data is not valid base64", err)
		}
		return data, nil
	}

	var (
		data []byte
		err  error
	)
	if r.blobs != nil && r.blobs.Owns(ref.URL) {
		logger.WithField("url", ref.URL).Debug("Loading capture from blob storage")
		data, err = r.blobs.Download(ctx, ref.URL)
	} else {
		data, err = r.fetcher.Fetch(ctx, ref.URL)
	}
	if err != nil {
		return nil, classify(ctx, err)
	}
	return data, nil
}

// decodeInline accepts raw base64 or a data URI such as
// "data:image/jpeg;base64,...".
func decodeInline(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 {
			return nil, ErrInvalidImageData
		}
		data = data[comma+1:]
	}
	out, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if out, rawErr := base64.RawStdEncoding.DecodeString(data); rawErr == nil {
			return out, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}
	return out, nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("image fetch timed out", err)
	}
	if errors.Is(err, storage.ErrTooLarge) {
		return apperrors.NewValidationError("image exceeds size limit", err)
	}
	var statusErr *storage.StatusError
	if errors.As(err, &statusErr) && statusErr.NotFound() {
		return apperrors.NewNotFoundError(ErrImageNotFound.Error(), err)
	}
	return apperrors.NewNetworkError(ErrRepositoryUnavailable.Error(), err)
}
