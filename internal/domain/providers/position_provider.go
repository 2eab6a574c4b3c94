package providers

import (
	"context"
	"time"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// PositionOptions mirrors the knobs of a single-shot geolocation request
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// PositionProvider resolves the caller's current position once
type PositionProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (*entities.Position, error)
}

// PositionErrorCode classifies why a position could not be obtained
type PositionErrorCode int

const (
	PositionPermissionDenied PositionErrorCode = 1
	PositionUnavailable      PositionErrorCode = 2
	PositionTimeout          PositionErrorCode = 3
)

// PositionError is returned by PositionProvider implementations
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	return e.Message
}

// NewPermissionDeniedError reports that the user did not grant location access
func NewPermissionDeniedError() *PositionError {
	return &PositionError{Code: PositionPermissionDenied, Message: "User denied the request for Geolocation."}
}

// NewPositionUnavailableError reports that no position could be determined
func NewPositionUnavailableError(reason string) *PositionError {
	if reason == "" {
		reason = "Position unavailable."
	}
	return &PositionError{Code: PositionUnavailable, Message: reason}
}

// NewPositionTimeoutError reports that the request exceeded its timeout
func NewPositionTimeoutError() *PositionError {
	return &PositionError{Code: PositionTimeout, Message: "Timeout expired while retrieving position."}
}
