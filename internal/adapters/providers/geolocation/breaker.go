package geolocation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

// BreakerProvider guards a geocoder with a circuit breaker. While the circuit
// is open, calls go to the fallback provider when one is set.
type BreakerProvider struct {
	primary  providers.GeolocationProvider
	fallback providers.GeolocationProvider
	cb       *gobreaker.CircuitBreaker
}

// BreakerSettings tunes when the circuit opens
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// NewBreakerProvider wraps primary. fallback may be nil.
func NewBreakerProvider(primary, fallback providers.GeolocationProvider, settings BreakerSettings) providers.GeolocationProvider {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoder",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return &BreakerProvider{primary: primary, fallback: fallback, cb: cb}
}

// Geocode converts an address to coordinates
func (b *BreakerProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	return b.call(func(p providers.GeolocationProvider) (*providers.GeocodedAddress, error) {
		return p.Geocode(ctx, address)
	})
}

// ReverseGeocode converts coordinates to an address
func (b *BreakerProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	return b.call(func(p providers.GeolocationProvider) (*providers.GeocodedAddress, error) {
		return p.ReverseGeocode(ctx, lat, lon)
	})
}

// State reports the breaker state (closed, half-open, open)
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerProvider) call(fn func(providers.GeolocationProvider) (*providers.GeocodedAddress, error)) (*providers.GeocodedAddress, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(b.primary)
	})
	if err == nil {
		return result.(*providers.GeocodedAddress), nil
	}

	if b.fallback != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		return fn(b.fallback)
	}
	return nil, err
}
