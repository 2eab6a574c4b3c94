package geolocation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

// MockGeolocationProvider resolves a fixed set of cities. Used in development
// and tests when no geocoding API key is configured.
type MockGeolocationProvider struct{}

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() providers.GeolocationProvider {
	return &MockGeolocationProvider{}
}

type mockCity struct {
	name    string
	state   string
	country string
	coords  providers.Coordinates
}

var mockCities = []mockCity{
	{"Lagos", "Lagos", "Nigeria", providers.Coordinates{Latitude: 6.5244, Longitude: 3.3792}},
	{"Abuja", "FCT", "Nigeria", providers.Coordinates{Latitude: 9.0765, Longitude: 7.3986}},
	{"Ibadan", "Oyo", "Nigeria", providers.Coordinates{Latitude: 7.3775, Longitude: 3.9470}},
	{"Port Harcourt", "Rivers", "Nigeria", providers.Coordinates{Latitude: 4.8156, Longitude: 7.0498}},
	{"New York", "NY", "USA", providers.Coordinates{Latitude: 40.7128, Longitude: -74.0060}},
	{"London", "England", "United Kingdom", providers.Coordinates{Latitude: 51.5074, Longitude: -0.1278}},
}

// Geocode matches the address against known city names
func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	lower := strings.ToLower(address)
	for _, city := range mockCities {
		if strings.Contains(lower, strings.ToLower(city.name)) {
			return city.address(strings.TrimSpace(address)), nil
		}
	}
	return nil, fmt.Errorf("no results for address")
}

// ReverseGeocode returns the nearest known city
func (m *MockGeolocationProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	best := mockCities[0]
	bestDist := math.MaxFloat64
	for _, city := range mockCities {
		d := math.Hypot(city.coords.Latitude-lat, city.coords.Longitude-lon)
		if d < bestDist {
			best, bestDist = city, d
		}
	}

	addr := best.address(fmt.Sprintf("%s, %s", best.name, best.country))
	addr.Coordinates = providers.Coordinates{Latitude: lat, Longitude: lon}
	return addr, nil
}

func (c mockCity) address(formatted string) *providers.GeocodedAddress {
	return &providers.GeocodedAddress{
		FormattedAddress: formatted,
		City:             c.name,
		State:            c.state,
		Country:          c.country,
		Coordinates:      c.coords,
	}
}
