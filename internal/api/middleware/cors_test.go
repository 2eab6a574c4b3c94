package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/salonbooking/backend/internal/api/middleware"
)

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard when unset", nil, "https://app.example.com", http.MethodGet, "*", http.StatusNoContent},
		{"listed origin echoed", []string{"https://app.example.com", " https://admin.example.com "}, "https://admin.example.com", http.MethodGet, "https://admin.example.com", http.StatusNoContent},
		{"unlisted origin", []string{"https://app.example.com"}, "https://evil.example.com", http.MethodGet, "", http.StatusNoContent},
		{"preflight", []string{"https://app.example.com"}, "https://app.example.com", http.MethodOptions, "https://app.example.com", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/salons", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			middleware.CORS(tt.allowed)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
		})
	}
}

func TestLoggingMiddleware_PropagatesRequestID(t *testing.T) {
	var seen string
	h := middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(middleware.RequestIDHeader)
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/salons", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "req-123", seen)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/salons", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}
