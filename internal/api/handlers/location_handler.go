package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/salonbooking/backend/internal/adapters/providers/position"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
)

// Locator resolves a single position fix
type Locator interface {
	Locate(ctx context.Context, provider providers.PositionProvider, opts providers.PositionOptions) entities.PositionState
}

// PositionResolver turns the location hints on a request into a PositionState
type PositionResolver struct {
	locator  Locator
	geocoder providers.GeolocationProvider
}

// NewPositionResolver creates a resolver. geocoder may be nil, in which case
// address hints are reported as unavailable.
func NewPositionResolver(locator Locator, geocoder providers.GeolocationProvider) *PositionResolver {
	return &PositionResolver{locator: locator, geocoder: geocoder}
}

// Resolve returns nil when the request carries no location hint at all.
// Client coordinates win over an address.
func (p *PositionResolver) Resolve(r *http.Request) *entities.PositionState {
	report := position.ClientReportFromRequest(r)
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if report.Consent == "" && !report.HasCoordinates() && address == "" {
		return nil
	}

	var provider providers.PositionProvider
	switch {
	case report.HasCoordinates() || report.Consent == position.ConsentDenied || address == "" || p.geocoder == nil:
		provider = position.NewClientPositionProvider(report)
	default:
		provider = position.NewGeocodingPositionProvider(p.geocoder, address)
	}

	state := p.locator.Locate(r.Context(), provider, positionOptions(r))
	return &state
}

func positionOptions(r *http.Request) providers.PositionOptions {
	q := r.URL.Query()
	opts := providers.PositionOptions{}
	if v, err := strconv.ParseBool(q.Get("high_accuracy")); err == nil {
		opts.HighAccuracy = v
	}
	if ms, err := strconv.Atoi(q.Get("timeout_ms")); err == nil && ms > 0 {
		opts.Timeout = time.Duration(ms) * time.Millisecond
	}
	if ms, err := strconv.Atoi(q.Get("maximum_age_ms")); err == nil && ms > 0 {
		opts.MaximumAge = time.Duration(ms) * time.Millisecond
	}
	return opts
}

// LocationHandler handles position and geocoding endpoints
type LocationHandler struct {
	resolver *PositionResolver
	geocoder providers.GeolocationProvider
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(resolver *PositionResolver, geocoder providers.GeolocationProvider) *LocationHandler {
	return &LocationHandler{resolver: resolver, geocoder: geocoder}
}

// Locate handles GET /api/location
func (h *LocationHandler) Locate(w http.ResponseWriter, r *http.Request) {
	state := h.resolver.Resolve(r)
	if state == nil {
		state = unreportedPosition()
	}
	respondWithJSON(w, http.StatusOK, state)
}

// unreportedPosition is the state for a request with no location hint,
// treated like a prompt the user dismissed
func unreportedPosition() *entities.PositionState {
	return &entities.PositionState{Error: providers.NewPermissionDeniedError().Message}
}

// Geocode handles GET /api/geocode?address=...
func (h *LocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	addr, err := h.geocoder.Geocode(r.Context(), address)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Str("address", address).Msg("Geocode failed")
		respondWithError(w, http.StatusBadGateway, "failed to geocode address")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"address":           address,
		"formatted_address": addr.FormattedAddress,
		"city":              addr.City,
		"lat":               addr.Coordinates.Latitude,
		"lon":               addr.Coordinates.Longitude,
	})
}

// ReverseGeocode handles GET /api/reverse-geocode?lat=...&lon=...
func (h *LocationHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	latStr := strings.TrimSpace(r.URL.Query().Get("lat"))
	lonStr := strings.TrimSpace(r.URL.Query().Get("lon"))
	if latStr == "" || lonStr == "" {
		respondWithError(w, http.StatusBadRequest, "lat and lon parameters are required")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid lat parameter")
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid lon parameter")
		return
	}

	address, err := h.geocoder.ReverseGeocode(r.Context(), lat, lon)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Reverse geocode failed")
		respondWithError(w, http.StatusBadGateway, "failed to reverse geocode")
		return
	}

	respondWithJSON(w, http.StatusOK, address)
}
