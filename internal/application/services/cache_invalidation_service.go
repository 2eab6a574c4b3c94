package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

// HTTPCacheSalonPattern matches every cached HTTP response under /api/salons
const HTTPCacheSalonPattern = "http:cache:salons:*"

// CacheInvalidationService drops cached salon responses when salon events arrive
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelSalonUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to salon updates: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	log.Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	log.Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.SalonEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.SalonEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := log.With().
		Str("event_id", event.ID).
		Str("salon_id", event.SalonID).
		Str("event_type", string(event.EventType)).
		Logger()

	// Listings embed ratings and distances for every salon, so any change
	// invalidates the whole salon scope rather than a single entry.
	if err := s.cache.DeletePattern(ctx, HTTPCacheSalonPattern); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate salon response cache")
		return
	}
	logger.Debug().Msg("Invalidated salon response cache")
}

// InvalidateSalonCaches drops every cached salon response. Used after bulk
// jobs such as the rating reconcile.
func (s *CacheInvalidationService) InvalidateSalonCaches(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, HTTPCacheSalonPattern); err != nil {
		return fmt.Errorf("failed to invalidate pattern %s: %w", HTTPCacheSalonPattern, err)
	}
	return nil
}
