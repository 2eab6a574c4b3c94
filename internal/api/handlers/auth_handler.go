package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/salonbooking/backend/internal/api/middleware"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/pkg/utils"
)

// AuthService defines the account operations used by the handler
type AuthService interface {
	SignUp(ctx context.Context, email, password, name string) (*entities.User, error)
	SignIn(ctx context.Context, email, password string) (*services.Session, error)
	RequestPasswordReset(ctx context.Context, email, redirectURL string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UpdateUserMetadata(ctx context.Context, userID, name, image string) (*entities.Profile, error)
}

// AuthHandler handles sign up, sign in and password endpoints
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email       string `json:"email" validate:"required"`
	RedirectURL string `json:"redirect_url" validate:"omitempty,url"`
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type passwordStrengthRequest struct {
	Password string `json:"password"`
}

type updateMeRequest struct {
	Name         string `json:"name" validate:"required"`
	ProfileImage string `json:"profile_image"`
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	user, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// RequestPasswordReset handles POST /api/auth/password-reset
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email, req.RedirectURL); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"status": "If an account exists for that email, a reset link has been sent.",
	})
}

// ConfirmPasswordReset handles POST /api/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// PasswordStrength handles POST /api/auth/password-strength
func (h *AuthHandler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req passwordStrengthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	score := utils.PasswordStrength(req.Password)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"score":      score.Score,
		"label":      score.Label,
		"feedback":   score.Feedback,
		"acceptable": utils.IsPasswordAcceptable(req.Password),
	})
}

// UpdateMe handles PATCH /api/me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	profile, err := h.auth.UpdateUserMetadata(r.Context(), identity.UserID, req.Name, req.ProfileImage)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}
