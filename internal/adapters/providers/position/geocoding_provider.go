package position

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

// approximate accuracy of a geocoded street address, in metres
const geocodedAccuracy = 250.0

// GeocodingPositionProvider resolves a typed address into a position
type GeocodingPositionProvider struct {
	geocoder providers.GeolocationProvider
	address  string
}

// NewGeocodingPositionProvider creates a provider for one address
func NewGeocodingPositionProvider(geocoder providers.GeolocationProvider, address string) *GeocodingPositionProvider {
	return &GeocodingPositionProvider{geocoder: geocoder, address: strings.TrimSpace(address)}
}

// CurrentPosition geocodes the address
func (p *GeocodingPositionProvider) CurrentPosition(ctx context.Context, opts providers.PositionOptions) (*entities.Position, error) {
	if p.address == "" {
		return nil, providers.NewPositionUnavailableError("No address was provided.")
	}

	addr, err := p.geocoder.Geocode(ctx, p.address)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, providers.NewPositionTimeoutError()
		}
		return nil, providers.NewPositionUnavailableError("Address could not be located.")
	}

	return &entities.Position{
		Latitude:  addr.Coordinates.Latitude,
		Longitude: addr.Coordinates.Longitude,
		Accuracy:  geocodedAccuracy,
		Source:    "geocoder",
		Timestamp: time.Now().UTC(),
	}, nil
}
