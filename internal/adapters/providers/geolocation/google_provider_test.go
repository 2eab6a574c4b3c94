package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okGeocodeBody = `{
  "status": "OK",
  "results": [{
    "formatted_address": "12 Allen Ave, Ikeja, Lagos, Nigeria",
    "address_components": [
      {"long_name": "12", "types": ["street_number"]},
      {"long_name": "Allen Avenue", "types": ["route"]},
      {"long_name": "Ikeja", "types": ["locality", "political"]},
      {"long_name": "Lagos", "types": ["administrative_area_level_1"]},
      {"long_name": "Nigeria", "types": ["country"]}
    ],
    "geometry": {"location": {"lat": 6.6018, "lng": 3.3515}}
  }]
}`

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, assert.AnError
}
func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	return nil
}
func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}
func (m *memoryCache) DeletePattern(ctx context.Context, pattern string) error { return nil }
func (m *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func TestGoogleProvider_Geocode(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "12 Allen Ave Lagos", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okGeocodeBody))
	}))
	defer server.Close()

	cache := &memoryCache{data: map[string][]byte{}}
	provider := NewGoogleGeolocationProviderWithBaseURL("test-key", cache, server.URL)

	addr, err := provider.Geocode(context.Background(), " 12 Allen Ave Lagos ")
	require.NoError(t, err)
	assert.Equal(t, "12 Allen Avenue", addr.Street)
	assert.Equal(t, "Ikeja", addr.City)
	assert.Equal(t, "Nigeria", addr.Country)
	assert.InDelta(t, 6.6018, addr.Coordinates.Latitude, 1e-9)

	// second lookup is served from cache
	_, err = provider.Geocode(context.Background(), "12 allen ave lagos")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGoogleProvider_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithBaseURL("test-key", nil, server.URL)

	_, err := provider.ReverseGeocode(context.Background(), 0.1, 0.1)
	assert.EqualError(t, err, "no results for coordinates")
}

func TestGoogleProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithBaseURL("test-key", nil, server.URL)

	_, err := provider.Geocode(context.Background(), "Lagos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestGoogleProvider_RequiresAPIKey(t *testing.T) {
	provider := NewGoogleGeolocationProviderWithBaseURL("", nil, "http://127.0.0.1:1")

	_, err := provider.Geocode(context.Background(), "Lagos")
	assert.EqualError(t, err, "google maps api key is required")
}
