package repository

import "errors"

var (
	// ErrInvalidImageData indicates inline data that is not valid base64
	ErrInvalidImageData = errors.New("invalid inline image data")

	// ErrImageNotFound indicates the image was not found at its source
	ErrImageNotFound = errors.New("image not found")

	// ErrRepositoryUnavailable indicates the image source could not be reached
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
