package routes_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/salonbooking/backend/internal/api/handlers"
	"github.com/zatekoja/salonbooking/backend/internal/api/routes"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

type stubTokens map[string]*services.Claims

func (s stubTokens) ParseToken(token string) (*services.Claims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, apperrors.NewUnauthorizedError("invalid token")
}

func newTestRouter(health func() error) http.Handler {
	tokens := stubTokens{
		"user-token": {Role: entities.RoleUser, Purpose: "session", RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}},
	}
	h := routes.Handlers{
		Salon:    handlers.NewSalonHandler(nil, nil, nil),
		Review:   handlers.NewReviewHandler(nil),
		Location: handlers.NewLocationHandler(nil, nil),
		Auth:     handlers.NewAuthHandler(nil),
		Admin:    handlers.NewAdminHandler(nil, nil, nil),
	}
	return routes.NewRouter(h, routes.Options{
		Tokens:         tokens,
		AllowedOrigins: []string{"https://app.example.com"},
		Health:         health,
	}).SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	newTestRouter(func() error { return errors.New("postgres unreachable") }).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_AdminRoutesAreProtected(t *testing.T) {
	router := newTestRouter(nil)

	adminRoutes := []struct{ method, path string }{
		{http.MethodPost, "/api/admin/salons"},
		{http.MethodPatch, "/api/admin/salons/s1"},
		{http.MethodDelete, "/api/admin/salons/s1"},
		{http.MethodDelete, "/api/admin/reviews/r1"},
		{http.MethodGet, "/api/admin/history"},
		{http.MethodPost, "/api/admin/history/undo"},
		{http.MethodPost, "/api/admin/history/h1/rollback"},
		{http.MethodPost, "/api/admin/ratings/recalculate"},
	}

	for _, route := range adminRoutes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			req := httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", "Bearer user-token")
			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestRouter_ReviewSubmitNeedsToken(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/salons/s1/reviews", strings.NewReader(`{"rating":5,"comment":"great place"}`))
	newTestRouter(nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PublicEndpointWithCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/password-strength", strings.NewReader(`{"password":"Str0ng!Passw0rd"}`))
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["acceptable"])
}

func TestRouter_UnknownMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/salons/s1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
