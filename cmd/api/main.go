package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/adapters/providers/geolocation"
	"github.com/zatekoja/salonbooking/backend/internal/adapters/providers/mail"
	"github.com/zatekoja/salonbooking/backend/internal/api/handlers"
	"github.com/zatekoja/salonbooking/backend/internal/api/middleware"
	"github.com/zatekoja/salonbooking/backend/internal/api/routes"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/bootstrap"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	"github.com/zatekoja/salonbooking/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	core, err := bootstrap.New(ctx, cfg, bootstrap.Options{Redis: true, Search: true, Metrics: metrics})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backends")
	}
	defer core.Close()

	geocoder := newGeocoder(cfg, core.Cache)
	mailer := newMailer(cfg)

	authService := services.NewAuthService(core.Users, core.Profiles, mailer, services.AuthSettings{
		JWTSecret:          cfg.Auth.JWTSecret,
		SessionTTL:         cfg.Auth.SessionTTL,
		ResetTokenTTL:      cfg.Auth.ResetTokenTTL,
		ResetURL:           cfg.Auth.ResetURL,
		ResetRedirectHosts: cfg.Auth.RedirectHosts(),
		BcryptCost:         cfg.Auth.BcryptCost,
	})
	locationService := services.NewLocationService(cfg.Geolocation.DefaultTimeout)

	var cacheInvalidation *services.CacheInvalidationService
	if core.Cache != nil && core.EventBus != nil {
		cacheInvalidation = services.NewCacheInvalidationService(core.Cache, core.EventBus)
		if err := cacheInvalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
			cacheInvalidation = nil
		}
	}

	scheduler, err := services.NewScheduler(core.RatingService, core.History, services.SchedulerConfig{
		RatingReconcileCron: cfg.Jobs.RatingReconcileCron,
		HistoryPruneCron:    cfg.Jobs.HistoryPruneCron,
		HistoryRetention:    cfg.History.Retention,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid job schedule")
	}
	if cacheInvalidation != nil {
		scheduler.WithCacheFlush(cacheInvalidation)
	}
	scheduler.Start()

	resolver := handlers.NewPositionResolver(locationService, geocoder)
	h := routes.Handlers{
		Salon:    handlers.NewSalonHandler(core.SalonService, core.RatingService, resolver),
		Review:   handlers.NewReviewHandler(core.ReviewService),
		Location: handlers.NewLocationHandler(resolver, geocoder),
		Auth:     handlers.NewAuthHandler(authService),
		Admin:    handlers.NewAdminHandler(core.SalonService, core.History, core.RatingService),
	}
	if core.EventBus != nil {
		h.SSE = handlers.NewSSEHandler(core.EventBus)
	}

	var adminUsers repositories.UserRepository
	if cfg.Auth.RequireAdminDB {
		adminUsers = core.Users
	}
	var cacheMiddleware *middleware.CacheMiddleware
	if core.Cache != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(core.Cache, metrics, nil)
	}

	router := routes.NewRouter(h, routes.Options{
		Tokens:         authService,
		AdminUsers:     adminUsers,
		Profiles:       core.Profiles,
		Cache:          cacheMiddleware,
		Metrics:        metrics,
		AllowedOrigins: cfg.Server.Origins(),
		Health: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return core.Health(ctx)
		},
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: salon event streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	scheduler.Stop()
	if cacheInvalidation != nil {
		cacheInvalidation.Stop()
	}

	log.Info().Msg("Server stopped")
}

func newGeocoder(cfg *config.Config, cache providers.CacheProvider) providers.GeolocationProvider {
	mock := geolocation.NewMockGeolocationProvider()
	if cfg.Geolocation.Provider != "google" {
		return mock
	}
	if cfg.Geolocation.APIKey == "" {
		log.Warn().Msg("GEOLOCATION_API_KEY is not set; using mock geolocation provider")
		return mock
	}
	google := geolocation.NewGoogleGeolocationProvider(cfg.Geolocation.APIKey, cache)
	return geolocation.NewBreakerProvider(google, mock, geolocation.BreakerSettings{})
}

func newMailer(cfg *config.Config) providers.Mailer {
	if cfg.Mail.SendGridAPIKey == "" {
		log.Warn().Msg("SENDGRID_API_KEY is not set; password reset mail is only logged")
		return mail.NewLogMailer(log.Logger)
	}
	return mail.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
}
