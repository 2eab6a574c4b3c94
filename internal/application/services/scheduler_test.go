package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

func TestNewScheduler(t *testing.T) {
	ratings := services.NewRatingService(new(MockSalonRepository), new(MockReviewRepository), nil)
	history := services.NewHistoryService(new(MockHistoryRepository))

	t.Run("accepts cron specs", func(t *testing.T) {
		s, err := services.NewScheduler(ratings, history, services.SchedulerConfig{
			RatingReconcileCron: "@every 30m",
			HistoryPruneCron:    "@daily",
			HistoryRetention:    30 * 24 * time.Hour,
		})
		require.NoError(t, err)
		s.Start()
		s.Stop()
	})

	t.Run("rejects a bad cron expression", func(t *testing.T) {
		_, err := services.NewScheduler(ratings, history, services.SchedulerConfig{RatingReconcileCron: "every now and then"})
		assert.Error(t, err)
	})

	t.Run("empty specs disable the jobs", func(t *testing.T) {
		s, err := services.NewScheduler(ratings, history, services.SchedulerConfig{})
		require.NoError(t, err)
		assert.NotNil(t, s)
	})
}

func TestScheduler_ReconcileRatingsFlushesResponseCache(t *testing.T) {
	salonRepo := new(MockSalonRepository)
	salonRepo.On("List", mock.Anything, mock.Anything).Return([]*entities.Salon{}, nil)
	ratings := services.NewRatingService(salonRepo, new(MockReviewRepository), nil)
	cache := NewMockCacheProvider()
	flusher := services.NewCacheInvalidationService(cache, NewMockEventBus())

	s, err := services.NewScheduler(ratings, nil, services.SchedulerConfig{})
	require.NoError(t, err)
	s.WithCacheFlush(flusher)

	report, err := s.ReconcileRatings(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Equal(t, []string{services.HTTPCacheSalonPattern}, cache.Patterns())
}

func TestScheduler_FailedReconcileDoesNotFlush(t *testing.T) {
	salonRepo := new(MockSalonRepository)
	salonRepo.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	ratings := services.NewRatingService(salonRepo, new(MockReviewRepository), nil)
	cache := NewMockCacheProvider()

	s, err := services.NewScheduler(ratings, nil, services.SchedulerConfig{})
	require.NoError(t, err)
	s.WithCacheFlush(services.NewCacheInvalidationService(cache, NewMockEventBus()))

	_, err = s.ReconcileRatings(context.Background())

	assert.Error(t, err)
	assert.Empty(t, cache.Patterns())
}
