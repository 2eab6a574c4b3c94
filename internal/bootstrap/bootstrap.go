// Package bootstrap wires storage, caching and the application services
// shared by the API server and the command line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/adapters/cache"
	"github.com/zatekoja/salonbooking/backend/internal/adapters/database"
	"github.com/zatekoja/salonbooking/backend/internal/adapters/events"
	"github.com/zatekoja/salonbooking/backend/internal/adapters/history"
	"github.com/zatekoja/salonbooking/backend/internal/adapters/search"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/postgres"
	redisclient "github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	"github.com/zatekoja/salonbooking/backend/pkg/config"
)

// Options selects the optional backends to connect
type Options struct {
	// Redis enables the response cache, salon read cache and event bus
	Redis bool
	// Search connects Typesense when it is enabled in config
	Search  bool
	Metrics *observability.Metrics
}

// Core holds the connected backends and services
type Core struct {
	Config *config.Config

	Postgres *postgres.Client
	Redis    *redisclient.Client
	Cache    providers.CacheProvider
	EventBus providers.EventBus
	Index    *search.TypesenseAdapter

	Users    repositories.UserRepository
	Profiles repositories.ProfileRepository
	Reviews  repositories.ReviewRepository
	Salons   repositories.SalonRepository

	History       *services.HistoryService
	SalonService  *services.SalonService
	RatingService *services.RatingService
	ReviewService *services.ReviewService

	closers []func() error
}

// New connects PostgreSQL and the history store, then the optional backends.
// Redis and Typesense failures are logged and the service runs without them.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Core, error) {
	c := &Core{Config: cfg}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	c.Postgres = pgClient
	c.closers = append(c.closers, pgClient.Close)

	if err := database.EnsureSchema(ctx, pgClient); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	historyStore, err := history.NewSQLiteStore(cfg.History.Path, cfg.History.Capacity)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	c.closers = append(c.closers, historyStore.Close)

	if opts.Redis {
		c.connectRedis()
	}

	var searchRepo repositories.SalonSearchRepository
	if opts.Search && cfg.Typesense.Enabled {
		if index := c.connectSearch(ctx); index != nil {
			c.Index = index
			searchRepo = index
		}
	}

	c.Users = database.NewUserAdapter(pgClient)
	c.Profiles = database.NewProfileAdapter(pgClient)
	c.Reviews = database.NewReviewAdapter(pgClient)

	c.Salons = database.NewSalonAdapter(pgClient)
	if c.Cache != nil {
		c.Salons = database.NewCachedSalonAdapter(c.Salons, c.Cache)
		log.Info().Msg("Salon adapter wrapped with caching layer")
	}

	c.History = services.NewHistoryService(historyStore).WithMetrics(opts.Metrics)
	c.RatingService = services.NewRatingService(c.Salons, c.Reviews, c.EventBus).
		WithMetrics(opts.Metrics).
		WithSearchIndex(searchRepo)
	c.SalonService = services.NewSalonService(c.Salons, searchRepo, c.History, c.EventBus)
	c.ReviewService = services.NewReviewService(c.Reviews, c.Salons, c.Profiles, c.RatingService, c.History, c.EventBus)
	c.History.SetReverters(c.SalonService, c.ReviewService)

	return c, nil
}

func (c *Core) connectRedis() {
	client, err := redisclient.NewClient(&c.Config.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; running without cache and live updates")
		return
	}
	c.Redis = client
	c.Cache = cache.NewRedisAdapter(client)
	c.EventBus = events.NewRedisEventBus(client)
	// the bus closes its subscriptions before the connection goes away
	c.closers = append(c.closers, client.Close, c.EventBus.Close)
	log.Info().Msg("Redis cache and event bus initialized")
}

func (c *Core) connectSearch(ctx context.Context) *search.TypesenseAdapter {
	client, err := typesense.NewClient(&c.Config.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable; salon search falls back to the database")
		return nil
	}
	index := search.NewTypesenseAdapter(client)
	if err := index.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to init Typesense schema; salon search falls back to the database")
		return nil
	}
	return index
}

// Health pings PostgreSQL and, when connected, Redis
func (c *Core) Health(ctx context.Context) error {
	var errs []error
	if err := c.Postgres.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("postgres: %w", err))
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every backend in reverse order of acquisition
func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Error during shutdown")
		}
	}
	c.closers = nil
}
