package storage

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTooLarge is returned when an image exceeds the configured size limit.
var ErrTooLarge = errors.New("image exceeds size limit")

// StatusError is a non-200 response from an image source.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 400 && e.Code < 500 {
		return fmt.Sprintf("client error: status code %d", e.Code)
	}
	if e.Code >= 500 {
		return fmt.Sprintf("server error: status code %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code %d", e.Code)
}

// NotFound reports whether the source answered 404.
func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound
}
