package services

import (
	"context"
	"errors"
	"time"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
)

// DefaultPositionTimeout applies when a request does not set its own timeout
const DefaultPositionTimeout = 10 * time.Second

// LocationService resolves a single position fix and reduces every failure
// to a message the client can show.
type LocationService struct {
	defaultTimeout time.Duration
}

// NewLocationService creates a location service. A non-positive timeout
// falls back to DefaultPositionTimeout.
func NewLocationService(defaultTimeout time.Duration) *LocationService {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultPositionTimeout
	}
	return &LocationService{defaultTimeout: defaultTimeout}
}

// Locate asks the provider for one position. Position is nil whenever Error is set.
func (s *LocationService) Locate(ctx context.Context, provider providers.PositionProvider, opts providers.PositionOptions) entities.PositionState {
	if opts.Timeout <= 0 {
		opts.Timeout = s.defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type result struct {
		position *entities.Position
		err      error
	}
	done := make(chan result, 1)
	go func() {
		p, err := provider.CurrentPosition(ctx, opts)
		done <- result{position: p, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: providers.NewPositionTimeoutError()}
	}

	if res.err == nil && res.position == nil {
		res.err = providers.NewPositionUnavailableError("")
	}
	if res.err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(res.err).Msg("Position request failed")
		return entities.PositionState{Error: positionErrorMessage(res.err)}
	}
	return entities.PositionState{Position: res.position}
}

func positionErrorMessage(err error) string {
	var posErr *providers.PositionError
	if errors.As(err, &posErr) {
		return posErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewPositionTimeoutError().Message
	}
	return providers.NewPositionUnavailableError("").Message
}
