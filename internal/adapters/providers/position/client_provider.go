package position

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/pkg/utils"
)

// Consent values a client may send with its position
const (
	ConsentGranted = "granted"
	ConsentDenied  = "denied"
)

// ClientReport is the position a client reported with its request
type ClientReport struct {
	Consent   string
	Latitude  string
	Longitude string
	Accuracy  string
	// Timestamp is the fix time in unix milliseconds, when known
	Timestamp string
}

// ClientReportFromRequest reads the reported position from query parameters,
// falling back to X-Geo-* headers.
func ClientReportFromRequest(r *http.Request) ClientReport {
	q := r.URL.Query()
	pick := func(param, header string) string {
		if v := strings.TrimSpace(q.Get(param)); v != "" {
			return v
		}
		return strings.TrimSpace(r.Header.Get(header))
	}
	return ClientReport{
		Consent:   strings.ToLower(pick("geo", "X-Geo-Consent")),
		Latitude:  pick("lat", "X-Geo-Latitude"),
		Longitude: pick("lon", "X-Geo-Longitude"),
		Accuracy:  pick("accuracy", "X-Geo-Accuracy"),
		Timestamp: pick("ts", "X-Geo-Timestamp"),
	}
}

// HasCoordinates reports whether the client sent any coordinates
func (c ClientReport) HasCoordinates() bool {
	return c.Latitude != "" || c.Longitude != ""
}

// ClientPositionProvider serves the position the client reported
type ClientPositionProvider struct {
	report ClientReport
	now    func() time.Time
}

// NewClientPositionProvider creates a provider for one request
func NewClientPositionProvider(report ClientReport) *ClientPositionProvider {
	return &ClientPositionProvider{report: report, now: time.Now}
}

// CurrentPosition returns the reported position or a PositionError
func (p *ClientPositionProvider) CurrentPosition(ctx context.Context, opts providers.PositionOptions) (*entities.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, providers.NewPositionTimeoutError()
	}

	r := p.report
	if r.Consent == ConsentDenied {
		return nil, providers.NewPermissionDeniedError()
	}
	if !r.HasCoordinates() {
		if r.Consent != ConsentGranted {
			return nil, providers.NewPermissionDeniedError()
		}
		return nil, providers.NewPositionUnavailableError("No position was reported.")
	}

	lat, errLat := strconv.ParseFloat(r.Latitude, 64)
	lon, errLon := strconv.ParseFloat(r.Longitude, 64)
	if errLat != nil || errLon != nil || !utils.ValidCoordinates(lat, lon) {
		return nil, providers.NewPositionUnavailableError("Reported position is invalid.")
	}

	pos := &entities.Position{
		Latitude:  lat,
		Longitude: lon,
		Source:    "client",
		Timestamp: p.now().UTC(),
	}
	if acc, err := strconv.ParseFloat(r.Accuracy, 64); err == nil && acc >= 0 {
		pos.Accuracy = acc
	}

	if ms, err := strconv.ParseInt(r.Timestamp, 10, 64); err == nil && ms > 0 {
		pos.Timestamp = time.UnixMilli(ms).UTC()
		if opts.MaximumAge > 0 && p.now().Sub(pos.Timestamp) > opts.MaximumAge {
			return nil, providers.NewPositionUnavailableError("Reported position is older than the maximum age.")
		}
	}

	return pos, nil
}
