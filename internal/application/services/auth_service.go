package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
	"github.com/zatekoja/salonbooking/backend/pkg/utils"
)

const (
	purposeSession       = "session"
	purposePasswordReset = "password_reset"
	tokenIssuer          = "salonbooking"
)

// AuthSettings configures token lifetimes and hashing cost
type AuthSettings struct {
	JWTSecret     string
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	ResetURL      string
	BcryptCost    int

	// ResetRedirectHosts lists the hosts a client-supplied reset redirect
	// may point at. The host of ResetURL is always allowed.
	ResetRedirectHosts []string
}

// Claims are the JWT claims issued by AuthService
type Claims struct {
	Role        string `json:"role,omitempty"`
	Email       string `json:"email,omitempty"`
	Purpose     string `json:"purpose"`
	// Fingerprint ties a reset token to the password hash it was issued for
	Fingerprint string `json:"pwf,omitempty"`

	jwt.RegisteredClaims
}

// Session is the result of a successful sign in
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

// AuthService handles accounts, sessions and password resets
type AuthService struct {
	users    repositories.UserRepository
	profiles repositories.ProfileRepository
	mailer   providers.Mailer
	settings AuthSettings
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users repositories.UserRepository, profiles repositories.ProfileRepository, mailer providers.Mailer, settings AuthSettings) *AuthService {
	if settings.SessionTTL <= 0 {
		settings.SessionTTL = 24 * time.Hour
	}
	if settings.ResetTokenTTL <= 0 {
		settings.ResetTokenTTL = time.Hour
	}
	if settings.BcryptCost < bcrypt.MinCost {
		settings.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:    users,
		profiles: profiles,
		mailer:   mailer,
		settings: settings,
		now:      time.Now,
	}
}

// SignUp creates a user account and its profile
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (*entities.User, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, apperrors.NewValidationError("please enter a valid email address")
	}
	if !utils.IsPasswordAcceptable(password) {
		return nil, apperrors.NewValidationError("password is too weak")
	}
	if err := validateDisplayName(name); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.settings.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	now := s.now().UTC()
	user := &entities.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         entities.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.profiles.Upsert(ctx, &entities.Profile{UserID: user.ID, Name: strings.TrimSpace(name)}); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create profile for new user")
	}
	return user, nil
}

// SignIn verifies credentials and issues a session token
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewUnauthorizedError("invalid email or password")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid email or password")
	}

	expiresAt := s.now().Add(s.settings.SessionTTL)
	token, err := s.sign(Claims{
		Role:    user.Role,
		Email:   user.Email,
		Purpose: purposeSession,
		RegisteredClaims: s.registered(user.ID, expiresAt),
	})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt.UTC(), User: user}, nil
}

// RequestPasswordReset emails a reset link. Unknown addresses succeed
// silently so the endpoint cannot be used to discover which accounts exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return apperrors.NewValidationError("please enter a valid email address")
	}
	base, err := s.resetBase(redirectURL)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		log.Info().Msg("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.sign(Claims{
		Purpose:          purposePasswordReset,
		Fingerprint:      passwordFingerprint(user.PasswordHash),
		RegisteredClaims: s.registered(user.ID, s.now().Add(s.settings.ResetTokenTTL)),
	})
	if err != nil {
		return err
	}

	link := resetLink(base, token)

	err = s.mailer.Send(ctx, providers.Mail{
		To:        user.Email,
		Subject:   "Reset your password",
		PlainText: fmt.Sprintf("Use this link to choose a new password. It expires in %s.\n\n%s", s.settings.ResetTokenTTL, link),
		HTML:      fmt.Sprintf(`<p>Use this link to choose a new password. It expires in %s.</p><p><a href="%s">Reset password</a></p>`, s.settings.ResetTokenTTL, link),
	})
	if err != nil {
		return apperrors.NewExternalError("failed to send reset email", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. A token stops
// working once the password it was issued against has changed.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if claims.Purpose != purposePasswordReset || claims.Fingerprint == "" {
		return apperrors.NewUnauthorizedError("invalid reset token")
	}
	if !utils.IsPasswordAcceptable(newPassword) {
		return apperrors.NewValidationError("password is too weak")
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return apperrors.NewUnauthorizedError("invalid reset token")
	}
	if err != nil {
		return err
	}
	if claims.Fingerprint != passwordFingerprint(user.PasswordHash) {
		return apperrors.NewUnauthorizedError("reset link has already been used")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.settings.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	return s.users.UpdatePassword(ctx, claims.Subject, string(hash))
}

// UpdateUserMetadata updates the caller's public profile
func (s *AuthService) UpdateUserMetadata(ctx context.Context, userID, name, image string) (*entities.Profile, error) {
	if err := validateDisplayName(name); err != nil {
		return nil, err
	}
	image = strings.TrimSpace(image)
	if image != "" {
		if u, err := url.ParseRequestURI(image); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, apperrors.NewValidationError("profile image must be an http(s) URL")
		}
	}

	profile := &entities.Profile{UserID: userID, Name: strings.TrimSpace(name), ProfileImage: image}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ParseToken validates a session token and returns its claims
func (s *AuthService) ParseToken(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purposeSession {
		return nil, apperrors.NewUnauthorizedError("invalid session token")
	}
	return claims, nil
}

func (s *AuthService) registered(subject string, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.New().String(),
	}
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.settings.JWTSecret))
	if err != nil {
		return "", apperrors.NewInternalError("failed to sign token", err)
	}
	return token, nil
}

func (s *AuthService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.settings.JWTSecret), nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, apperrors.NewUnauthorizedError("token has expired")
		}
		return nil, apperrors.NewUnauthorizedError("invalid token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperrors.NewUnauthorizedError("invalid token")
	}
	return claims, nil
}

func validateDisplayName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 2 || n > 80 {
		return apperrors.NewValidationError("name must be between 2 and 80 characters")
	}
	return nil
}

// resetBase picks the page the reset link points at. A client redirect is
// only honoured for allowed hosts.
func (s *AuthService) resetBase(redirectURL string) (*url.URL, error) {
	fallback, err := url.Parse(s.settings.ResetURL)
	if err != nil || fallback.Scheme == "" || fallback.Host == "" {
		return nil, apperrors.NewInternalError("password reset URL is not configured", err)
	}

	redirectURL = strings.TrimSpace(redirectURL)
	if redirectURL == "" {
		return fallback, nil
	}

	u, err := url.Parse(redirectURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.NewValidationError("redirect URL is invalid")
	}
	if !s.redirectHostAllowed(u.Host, fallback.Host) {
		return nil, apperrors.NewValidationError("redirect URL host is not allowed")
	}
	return u, nil
}

func (s *AuthService) redirectHostAllowed(host, resetHost string) bool {
	if strings.EqualFold(host, resetHost) {
		return true
	}
	for _, allowed := range s.settings.ResetRedirectHosts {
		if strings.EqualFold(host, strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}

func resetLink(base *url.URL, token string) string {
	u := *base
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:12])
}
