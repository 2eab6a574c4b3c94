package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/salonbooking/backend/internal/api/handlers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

type unavailableBus struct {
	*MockEventBus
}

func (unavailableBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SalonEvent, error) {
	return nil, errors.New("redis: connection refused")
}

func TestSSEHandler_StreamsSalonEvents(t *testing.T) {
	bus := NewMockEventBus()
	h := handlers.NewSSEHandler(bus)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/salons/{id}/events", h.StreamSalonUpdates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/salons/s1/events", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		mux.ServeHTTP(rec, req)
	}()

	channel := providers.GetSalonChannel("s1")
	require.Eventually(t, func() bool { return bus.SubscriberCount(channel) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	stray := entities.NewSalonEvent("s2", entities.SalonEventTypeReviewAdded, nil)
	require.NoError(t, bus.Publish(ctx, channel, stray))
	added := entities.NewSalonEvent("s1", entities.SalonEventTypeRatingUpdated, map[string]interface{}{"rating": 4.5})
	require.NoError(t, bus.Publish(ctx, channel, added))

	require.Eventually(t, func() bool {
		return containsAll(rec.BodyString(), "event: connected", "event: rating_updated", added.ID)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after the client went away")
	}

	body := rec.BodyString()
	assert.NotContains(t, body, stray.ID)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, h.ClientCount())
}

func TestSSEHandler_SubscribeFailure(t *testing.T) {
	h := handlers.NewSSEHandler(unavailableBus{NewMockEventBus()})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/salons/{id}/events", h.StreamSalonUpdates)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/salons/s1/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, h.ClientCount())
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
