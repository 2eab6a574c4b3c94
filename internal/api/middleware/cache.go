package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
)

// Keyspace prefixes for cached responses. Salon responses share one prefix so
// a single pattern delete clears them whenever a salon or review changes.
const (
	SalonCacheKeyPrefix   = "http:cache:salons:"
	GeocodeCacheKeyPrefix = "http:cache:geocode:"
)

// CacheRoute configures caching for a path prefix
type CacheRoute struct {
	Prefix     string
	KeyPrefix  string
	TTLSeconds int
}

// DefaultCacheRoutes caches public salon reads and geocoding lookups
var DefaultCacheRoutes = []CacheRoute{
	{Prefix: "/api/salons", KeyPrefix: SalonCacheKeyPrefix, TTLSeconds: 120},
	{Prefix: "/api/geocode", KeyPrefix: GeocodeCacheKeyPrefix, TTLSeconds: 3600},
	{Prefix: "/api/reverse-geocode", KeyPrefix: GeocodeCacheKeyPrefix, TTLSeconds: 3600},
}

// request headers that change a cached response
var varyHeaders = []string{"X-Geo-Consent", "X-Geo-Latitude", "X-Geo-Longitude", "X-Geo-Accuracy"}

// CacheMiddleware provides HTTP response caching
type CacheMiddleware struct {
	cache   providers.CacheProvider
	metrics *observability.Metrics
	routes  []CacheRoute
}

// NewCacheMiddleware creates a cache middleware. A nil cache disables it.
func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics, routes []CacheRoute) *CacheMiddleware {
	if routes == nil {
		routes = DefaultCacheRoutes
	}
	return &CacheMiddleware{cache: cache, metrics: metrics, routes: routes}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		// event streams never go through the cache
		if strings.HasSuffix(r.URL.Path, "/events") {
			next.ServeHTTP(w, r)
			return
		}

		route, ok := m.routeFor(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		logger := observability.LoggerFromContext(r.Context())
		cacheKey := route.KeyPrefix + requestHash(r)

		if cached, err := m.cache.Get(r.Context(), cacheKey); err == nil {
			observability.RecordCacheHit(r.Context(), m.metrics, route.KeyPrefix)
			logger.Debug().Str("key", cacheKey).Msg("Cache hit")
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		observability.RecordCacheMiss(r.Context(), m.metrics, route.KeyPrefix)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), cacheKey, recorder.body.Bytes(), route.TTLSeconds); err != nil {
				logger.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache response")
			}
		}
	})
}

func (m *CacheMiddleware) routeFor(path string) (CacheRoute, bool) {
	for _, route := range m.routes {
		if path == route.Prefix || strings.HasPrefix(path, route.Prefix+"/") {
			return route, true
		}
	}
	return CacheRoute{}, false
}

// requestHash covers the path, the query and any position headers
func requestHash(r *http.Request) string {
	var b strings.Builder
	b.WriteString(r.URL.Path)
	if q := r.URL.Query().Encode(); q != "" {
		b.WriteString("?")
		b.WriteString(q)
	}
	for _, h := range varyHeaders {
		if v := r.Header.Get(h); v != "" {
			b.WriteString("|")
			b.WriteString(h)
			b.WriteString("=")
			b.WriteString(v)
		}
	}
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
