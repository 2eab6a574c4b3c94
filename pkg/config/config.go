package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zatekoja/salonbooking/backend/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Typesense   TypesenseConfig
	Geolocation GeolocationConfig
	Auth        AuthConfig
	Mail        MailConfig
	History     HistoryConfig
	Jobs        JobsConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration. AllowedOrigins is a comma list.
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL     string
	APIKey  string
	Enabled bool
}

// GeolocationConfig holds geocoding provider configuration
type GeolocationConfig struct {
	Provider       string
	APIKey         string
	DefaultTimeout time.Duration
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	JWTSecret      string
	SessionTTL     time.Duration
	ResetTokenTTL  time.Duration
	ResetURL       string
	BcryptCost     int
	RequireAdminDB bool

	// ResetRedirectHosts is a comma list of extra hosts allowed in reset links
	ResetRedirectHosts string
}

// MailConfig holds outbound email settings
type MailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// HistoryConfig holds settings for the admin rollback log
type HistoryConfig struct {
	Path      string
	Capacity  int
	Retention time.Duration
}

// JobsConfig holds cron specs for background jobs
type JobsConfig struct {
	RatingReconcileCron string
	HistoryPruneCron    string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present, then Vault secrets when
// VAULT_ENABLED is set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	vault := secrets.ConfigFromEnv()
	if _, err := secrets.Apply(context.Background(), vault); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "salon_booking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
		},
		Geolocation: GeolocationConfig{
			Provider:       getEnv("GEOLOCATION_PROVIDER", "mock"),
			APIKey:         getEnv("GEOLOCATION_API_KEY", ""),
			DefaultTimeout: getEnvAsDuration("GEOLOCATION_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			ResetTokenTTL:  getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
			ResetURL:       getEnv("PASSWORD_RESET_URL", "http://localhost:5173/reset-password"),
			BcryptCost:     getEnvAsInt("BCRYPT_COST", 10),
			RequireAdminDB: getEnvAsBool("ADMIN_ROLE_DB_CHECK", true),

			ResetRedirectHosts: getEnv("RESET_REDIRECT_HOSTS", ""),
		},
		Mail: MailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("MAIL_FROM_EMAIL", "no-reply@salonbooking.local"),
			FromName:       getEnv("MAIL_FROM_NAME", "Salon Booking"),
		},
		History: HistoryConfig{
			Path:      getEnv("HISTORY_DB_PATH", "data/history.db"),
			Capacity:  getEnvAsInt("HISTORY_CAPACITY", 200),
			Retention: getEnvAsDuration("HISTORY_RETENTION", 30*24*time.Hour),
		},
		Jobs: JobsConfig{
			RatingReconcileCron: getEnv("RATING_RECONCILE_CRON", "@every 30m"),
			HistoryPruneCron:    getEnv("HISTORY_PRUNE_CRON", "@daily"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "salon-booking"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.Environment == "production" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "development-secret"
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("HISTORY_CAPACITY must be positive, got %d", c.History.Capacity)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Origins splits AllowedOrigins into its entries
func (c *ServerConfig) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// RedirectHosts returns the extra reset redirect hosts
func (c *AuthConfig) RedirectHosts() []string {
	return splitList(c.ResetRedirectHosts)
}

func splitList(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
