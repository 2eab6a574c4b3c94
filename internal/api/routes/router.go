package routes

import (
	"net/http"

	"github.com/zatekoja/salonbooking/backend/internal/api/handlers"
	"github.com/zatekoja/salonbooking/backend/internal/api/middleware"
	"github.com/zatekoja/salonbooking/backend/internal/application/loaders"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
)

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Salon    *handlers.SalonHandler
	Review   *handlers.ReviewHandler
	Location *handlers.LocationHandler
	Auth     *handlers.AuthHandler
	Admin    *handlers.AdminHandler
	SSE      *handlers.SSEHandler
}

// Options configures the middleware stack
type Options struct {
	Tokens         middleware.TokenParser
	AdminUsers     repositories.UserRepository // nil trusts the role in the token
	Profiles       repositories.ProfileRepository
	Cache          *middleware.CacheMiddleware
	Metrics        *observability.Metrics
	AllowedOrigins []string
	Health         func() error
}

// Router holds all route handlers
type Router struct {
	mux      *http.ServeMux
	handlers Handlers
	opts     Options
}

// NewRouter creates a new router
func NewRouter(h Handlers, opts Options) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		handlers: h,
		opts:     opts,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	requireAuth := middleware.RequireAuth(r.opts.Tokens)
	requireAdmin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(r.opts.AdminUsers)(h))
	}

	r.mux.HandleFunc("GET /health", r.health)

	// Salon endpoints
	r.mux.HandleFunc("GET /api/salons", r.handlers.Salon.SearchSalons)
	r.mux.HandleFunc("GET /api/salons/{id}", r.handlers.Salon.GetSalon)
	r.mux.HandleFunc("GET /api/salons/{id}/rating", r.handlers.Salon.GetSalonRating)
	if r.handlers.SSE != nil {
		r.mux.HandleFunc("GET /api/salons/{id}/events", r.handlers.SSE.StreamSalonUpdates)
	}

	// Review endpoints
	r.mux.HandleFunc("GET /api/salons/{id}/reviews", r.handlers.Review.ListReviews)
	r.mux.Handle("POST /api/salons/{id}/reviews", requireAuth(http.HandlerFunc(r.handlers.Review.SubmitReview)))

	// Location endpoints
	r.mux.HandleFunc("GET /api/location", r.handlers.Location.Locate)
	r.mux.HandleFunc("GET /api/geocode", r.handlers.Location.Geocode)
	r.mux.HandleFunc("GET /api/reverse-geocode", r.handlers.Location.ReverseGeocode)

	// Account endpoints
	r.mux.HandleFunc("POST /api/auth/signup", r.handlers.Auth.SignUp)
	r.mux.HandleFunc("POST /api/auth/signin", r.handlers.Auth.SignIn)
	r.mux.HandleFunc("POST /api/auth/password-reset", r.handlers.Auth.RequestPasswordReset)
	r.mux.HandleFunc("POST /api/auth/password-reset/confirm", r.handlers.Auth.ConfirmPasswordReset)
	r.mux.HandleFunc("POST /api/auth/password-strength", r.handlers.Auth.PasswordStrength)
	r.mux.Handle("PATCH /api/me", requireAuth(http.HandlerFunc(r.handlers.Auth.UpdateMe)))

	// Admin endpoints
	r.mux.Handle("POST /api/admin/salons", requireAdmin(r.handlers.Admin.CreateSalon))
	r.mux.Handle("PATCH /api/admin/salons/{id}", requireAdmin(r.handlers.Admin.UpdateSalon))
	r.mux.Handle("DELETE /api/admin/salons/{id}", requireAdmin(r.handlers.Admin.DeleteSalon))
	r.mux.Handle("DELETE /api/admin/reviews/{id}", requireAdmin(r.handlers.Review.DeleteReview))
	r.mux.Handle("GET /api/admin/history", requireAdmin(r.handlers.Admin.ListHistory))
	r.mux.Handle("POST /api/admin/history/undo", requireAdmin(r.handlers.Admin.UndoHistory))
	r.mux.Handle("POST /api/admin/history/{id}/rollback", requireAdmin(r.handlers.Admin.RollbackHistory))
	r.mux.Handle("POST /api/admin/ratings/recalculate", requireAdmin(r.handlers.Admin.RecalculateRatings))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	if r.opts.Profiles != nil {
		handler = loaders.Middleware(r.opts.Profiles)(handler)
	}
	handler = middleware.LoggingMiddleware(handler)

	if r.opts.Cache != nil {
		handler = r.opts.Cache.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.opts.Metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache hits
	handler = middleware.CORS(r.opts.AllowedOrigins)(handler)

	return handler
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if r.opts.Health != nil {
		if err := r.opts.Health(); err != nil {
			observability.LoggerFromContext(req.Context()).Warn().Err(err).Msg("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("UNAVAILABLE"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
