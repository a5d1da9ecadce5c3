package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated        = errors.New("authentication required")
	ErrForbidden              = errors.New("access forbidden")
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConfirmationRequired   = errors.New("confirmation required")
	ErrCancelReasonRequired   = errors.New("cancellation reason is required")
	ErrNotCancellable         = errors.New("invoice can only be cancelled while pending")
	ErrVariantEditUnsupported = errors.New("product variants cannot be edited after creation")
	ErrEmptyCheckout          = errors.New("checkout requires at least one item")
)

// BackendError is a non-2xx answer from the marketplace backend.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

// BackendMessage returns the backend-provided message carried by err, if any.
func BackendMessage(err error) (string, bool) {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message, true
	}
	return "", false
}

// IsAuthFailure reports whether err is a 401/403 from the backend.
func IsAuthFailure(err error) bool {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	return be.StatusCode == 401 || be.StatusCode == 403
}
