package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

const (
	googleMapsBaseURL      = "https://maps.googleapis.com/maps/api"
	geocodePath            = "/geocode/json"
	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	defaultHTTPTimeout     = 8 * time.Second
)

// GoogleGeolocationProvider implements the GeolocationProvider using the Google Geocoding API.
type GoogleGeolocationProvider struct {
	apiKey string
	client *resty.Client
	cache  providers.CacheProvider
}

// NewGoogleGeolocationProvider creates a new Google geolocation provider.
func NewGoogleGeolocationProvider(apiKey string, cache providers.CacheProvider) providers.GeolocationProvider {
	return NewGoogleGeolocationProviderWithBaseURL(apiKey, cache, googleMapsBaseURL)
}

// NewGoogleGeolocationProviderWithBaseURL allows overriding the API host (used for tests).
func NewGoogleGeolocationProviderWithBaseURL(apiKey string, cache providers.CacheProvider, baseURL string) providers.GeolocationProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleMapsBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(defaultHTTPTimeout).
		SetHeader("Accept", "application/json")

	return &GoogleGeolocationProvider{
		apiKey: apiKey,
		client: client,
		cache:  cache,
	}
}

// Geocode converts an address to a full geocoded address.
func (g *GoogleGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required")
	}

	cacheKey := "geo:v1:geocode:" + hashKey(strings.ToLower(trimmed))
	if addr := g.fromCache(ctx, cacheKey); addr != nil {
		return addr, nil
	}

	addr, err := g.lookup(ctx, map[string]string{"address": trimmed}, "no results for address")
	if err != nil {
		return nil, err
	}

	g.toCache(ctx, cacheKey, addr)
	return addr, nil
}

// ReverseGeocode converts coordinates to an address.
func (g *GoogleGeolocationProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	cacheKey := "geo:v1:reverse:" + hashKey(fmt.Sprintf("%.5f,%.5f", lat, lon))
	if addr := g.fromCache(ctx, cacheKey); addr != nil {
		return addr, nil
	}

	addr, err := g.lookup(ctx, map[string]string{"latlng": fmt.Sprintf("%f,%f", lat, lon)}, "no results for coordinates")
	if err != nil {
		return nil, err
	}

	g.toCache(ctx, cacheKey, addr)
	return addr, nil
}

func (g *GoogleGeolocationProvider) lookup(ctx context.Context, params map[string]string, emptyMsg string) (*providers.GeocodedAddress, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}

	var payload googleGeocodeResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("key", g.apiKey).
		SetResult(&payload).
		Get(geocodePath)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode())
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, fmt.Errorf("%s", emptyMsg)
	default:
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("geocode request failed: %s - %s", payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("geocode request failed: %s", payload.Status)
	}

	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("%s", emptyMsg)
	}

	result := payload.Results[0]
	return &providers.GeocodedAddress{
		FormattedAddress: result.FormattedAddress,
		Street:           buildStreet(result.AddressComponents),
		City:             component(result.AddressComponents, "locality", "administrative_area_level_2"),
		State:            component(result.AddressComponents, "administrative_area_level_1"),
		ZipCode:          component(result.AddressComponents, "postal_code"),
		Country:          component(result.AddressComponents, "country"),
		Coordinates: providers.Coordinates{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}, nil
}

func (g *GoogleGeolocationProvider) fromCache(ctx context.Context, key string) *providers.GeocodedAddress {
	if g.cache == nil {
		return nil
	}
	cached, err := g.cache.Get(ctx, key)
	if err != nil || len(cached) == 0 {
		return nil
	}
	var addr providers.GeocodedAddress
	if err := json.Unmarshal(cached, &addr); err != nil {
		return nil
	}
	if addr.Coordinates.Latitude == 0 && addr.Coordinates.Longitude == 0 {
		return nil
	}
	return &addr
}

func (g *GoogleGeolocationProvider) toCache(ctx context.Context, key string, addr *providers.GeocodedAddress) {
	if g.cache == nil {
		return
	}
	if payload, err := json.Marshal(addr); err == nil {
		_ = g.cache.Set(ctx, key, payload, defaultGeocodeCacheTTL)
	}
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func component(components []googleAddressComponent, primary string, fallback ...string) string {
	for _, t := range append([]string{primary}, fallback...) {
		for _, comp := range components {
			if containsType(comp.Types, t) {
				return comp.LongName
			}
		}
	}
	return ""
}

func buildStreet(components []googleAddressComponent) string {
	number := component(components, "street_number")
	route := component(components, "route")
	return strings.TrimSpace(number + " " + route)
}

func containsType(types []string, target string) bool {
	for _, t := range types {
		if t == target {
			return true
		}
	}
	return false
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type googleAddressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}
