package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
)

// CachedSalonAdapter wraps a SalonRepository with a read-through cache
type CachedSalonAdapter struct {
	adapter repositories.SalonRepository
	cache   providers.CacheProvider

	// mu orders cache fills against invalidation. writes counts
	// invalidations; a fill that read before one is dropped.
	mu     sync.Mutex
	writes uint64
}

// NewCachedSalonAdapter creates a new cached salon adapter
func NewCachedSalonAdapter(adapter repositories.SalonRepository, cache providers.CacheProvider) repositories.SalonRepository {
	return &CachedSalonAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	salonByIDTTL   = 300
	salonsListTTL  = 120
	salonsListKeys = "salons:list:*"
)

// SalonCacheKey returns the cache key of a single salon
func SalonCacheKey(id string) string {
	return fmt.Sprintf("salon:%s", id)
}

func salonsListCacheKey(filter repositories.SalonFilter) string {
	specs := strings.Join(normalizeSpecialties(filter.Specialties), ",")
	near := ""
	if filter.Sort == repositories.SalonSortDistance && filter.Near != nil {
		near = fmt.Sprintf("%.4f,%.4f", filter.Near.Latitude, filter.Near.Longitude)
	}
	return fmt.Sprintf("salons:list:%s:%s:%.1f:%d:%t:%s:%s:%d:%d",
		strings.ToLower(strings.TrimSpace(filter.Query)), specs,
		filter.MinRating, filter.MaxPriceLevel, filter.IncludeAll,
		filter.Sort, near, filter.Limit, filter.Offset)
}

// salonsCountCacheKey shares the list prefix so list invalidation clears it
func salonsCountCacheKey(filter repositories.SalonFilter) string {
	filter.Sort, filter.Near, filter.Limit, filter.Offset = "", nil, 0, 0
	return strings.Replace(salonsListCacheKey(filter), "salons:list:", "salons:list:count:", 1)
}

// GetByID retrieves a salon by ID with caching
func (a *CachedSalonAdapter) GetByID(ctx context.Context, id string) (*entities.Salon, error) {
	cacheKey := SalonCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var salon entities.Salon
		if err := json.Unmarshal(cached, &salon); err == nil {
			return &salon, nil
		}
		log.Warn().Str("salon_id", id).Msg("Failed to unmarshal cached salon")
	}

	gen := a.generation()
	salon, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, salon, salonByIDTTL, gen)
	return salon, nil
}

// GetByIDs retrieves salons by ID, serving what it can from cache
func (a *CachedSalonAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Salon, error) {
	if len(ids) == 0 {
		return []*entities.Salon{}, nil
	}

	salons := make([]*entities.Salon, 0, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		if cached, err := a.cache.Get(ctx, SalonCacheKey(id)); err == nil {
			var salon entities.Salon
			if err := json.Unmarshal(cached, &salon); err == nil {
				salons = append(salons, &salon)
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return salons, nil
	}

	gen := a.generation()
	fetched, err := a.adapter.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, salon := range fetched {
		a.setAsync(SalonCacheKey(salon.ID), salon, salonByIDTTL, gen)
	}

	return append(salons, fetched...), nil
}

// List retrieves salons with caching. Lists restricted to explicit IDs come
// from search hits and are not cached.
func (a *CachedSalonAdapter) List(ctx context.Context, filter repositories.SalonFilter) ([]*entities.Salon, error) {
	if filter.IDs != nil {
		return a.adapter.List(ctx, filter)
	}
	cacheKey := salonsListCacheKey(filter)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var salons []*entities.Salon
		if err := json.Unmarshal(cached, &salons); err == nil {
			return salons, nil
		}
		log.Warn().Str("key", cacheKey).Msg("Failed to unmarshal cached salon list")
	}

	gen := a.generation()
	salons, err := a.adapter.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, salons, salonsListTTL, gen)
	return salons, nil
}

// Count counts salons with caching
func (a *CachedSalonAdapter) Count(ctx context.Context, filter repositories.SalonFilter) (int, error) {
	if filter.IDs != nil {
		return a.adapter.Count(ctx, filter)
	}
	cacheKey := salonsCountCacheKey(filter)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var total int
		if err := json.Unmarshal(cached, &total); err == nil {
			return total, nil
		}
	}

	gen := a.generation()
	total, err := a.adapter.Count(ctx, filter)
	if err != nil {
		return 0, err
	}

	a.setAsync(cacheKey, total, salonsListTTL, gen)
	return total, nil
}

// Create creates a salon and invalidates list caches
func (a *CachedSalonAdapter) Create(ctx context.Context, salon *entities.Salon) error {
	if err := a.adapter.Create(ctx, salon); err != nil {
		return err
	}
	a.invalidate(ctx, "")
	return nil
}

// Update updates a salon and invalidates its cache entries
func (a *CachedSalonAdapter) Update(ctx context.Context, salon *entities.Salon) error {
	if err := a.adapter.Update(ctx, salon); err != nil {
		return err
	}
	a.invalidate(ctx, salon.ID)
	return nil
}

// UpdateRating writes the rating rollup and invalidates cache entries
func (a *CachedSalonAdapter) UpdateRating(ctx context.Context, salonID string, average float64, count int) error {
	if err := a.adapter.UpdateRating(ctx, salonID, average, count); err != nil {
		return err
	}
	a.invalidate(ctx, salonID)
	return nil
}

// Delete soft-deletes a salon and invalidates cache entries
func (a *CachedSalonAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// Restore re-activates a salon and invalidates cache entries
func (a *CachedSalonAdapter) Restore(ctx context.Context, salon *entities.Salon) error {
	if err := a.adapter.Restore(ctx, salon); err != nil {
		return err
	}
	a.invalidate(ctx, salon.ID)
	return nil
}

// invalidate drops the salon entry (when id is set) and every cached list.
// It runs inline so that a read right after a write sees the new data.
func (a *CachedSalonAdapter) invalidate(ctx context.Context, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.writes++

	if id != "" {
		if err := a.cache.Delete(ctx, SalonCacheKey(id)); err != nil {
			log.Warn().Err(err).Str("salon_id", id).Msg("Failed to invalidate salon cache")
		}
	}
	if err := a.cache.DeletePattern(ctx, salonsListKeys); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate salon list cache")
	}
}

// generation must be taken before reading from the wrapped adapter
func (a *CachedSalonAdapter) generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writes
}

// setAsync updates the cache without blocking the response
func (a *CachedSalonAdapter) setAsync(key string, value interface{}, ttl int, gen uint64) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	go a.fill(key, data, ttl, gen)
}

// fill stores data unless a write has invalidated the cache since gen
func (a *CachedSalonAdapter) fill(key string, data []byte, ttl int, gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writes != gen {
		log.Debug().Str("key", key).Msg("Skipping cache fill older than the last write")
		return
	}
	if err := a.cache.Set(context.Background(), key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to write cache")
	}
}
