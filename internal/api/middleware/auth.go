package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

type identityKey struct{}

// Identity is the authenticated caller of a request
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == entities.RoleAdmin
}

// WithIdentity attaches an identity to ctx
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller attached by RequireAuth
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// TokenParser validates session tokens
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := tokens.ParseToken(strings.TrimSpace(token))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, apperrors.MessageOf(err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
				Role:   claims.Role,
			})
			logger := observability.LoggerFromContext(ctx).With().Str("user_id", claims.Subject).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

// RequireAdmin allows only admins through. It must run after RequireAuth.
// When users is non-nil the role is re-read from storage so a revoked admin
// loses access before their token expires.
func RequireAdmin(users repositories.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if users != nil {
				user, err := users.GetByID(r.Context(), identity.UserID)
				if err != nil {
					if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
						writeAuthError(w, http.StatusUnauthorized, "account no longer exists")
						return
					}
					observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Failed to load user for admin check")
					writeAuthError(w, http.StatusInternalServerError, "failed to verify permissions")
					return
				}
				identity.Role = user.Role
			}

			if !identity.IsAdmin() {
				writeAuthError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="salonbooking"`)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
