package events

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/salonbooking/backend/pkg/config"
)

func newTestBus(t *testing.T) *RedisEventBus {
	t.Helper()
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("Skipping Redis event bus test: TEST_REDIS_HOST not set")
	}
	port := 6379
	if v, err := strconv.Atoi(os.Getenv("TEST_REDIS_PORT")); err == nil {
		port = v
	}

	client, err := redisclient.NewClient(&config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	bus := NewRedisEventBus(client).(*RedisEventBus)
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestRedisEventBus_FanOut(t *testing.T) {
	bus := newTestBus(t)
	channel := providers.GetSalonChannel("fanout-" + strconv.FormatInt(time.Now().UnixNano(), 10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	assert.Equal(t, 2, bus.SubscriberCount(channel))

	// give Redis a moment to register the subscription
	time.Sleep(100 * time.Millisecond)

	event := entities.NewSalonEvent("salon-1", entities.SalonEventTypeRatingUpdated, map[string]interface{}{"rating": 4.5})
	require.NoError(t, bus.Publish(ctx, channel, event))

	for _, ch := range []<-chan *entities.SalonEvent{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, event.ID, got.ID)
			assert.Equal(t, entities.SalonEventTypeRatingUpdated, got.EventType)
			assert.Equal(t, 4.5, got.ChangedFields["rating"])
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestRedisEventBus_CancelReleasesSubscription(t *testing.T) {
	bus := newTestBus(t)
	channel := providers.GetSalonChannel("cancel-" + strconv.FormatInt(time.Now().UnixNano(), 10))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed")
	}
	assert.Equal(t, 0, bus.SubscriberCount(channel))
}

func TestRedisEventBus_ResubscribeAfterLastListenerLeaves(t *testing.T) {
	bus := newTestBus(t)
	channel := providers.GetSalonChannel("resub-" + strconv.FormatInt(time.Now().UnixNano(), 10))

	first, cancelFirst := context.WithCancel(context.Background())
	old, err := bus.Subscribe(first, channel)
	require.NoError(t, err)
	cancelFirst()
	for range old {
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fresh, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	// let the old receiver finish its cleanup
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, bus.SubscriberCount(channel))

	event := entities.NewSalonEvent("salon-1", entities.SalonEventTypeReviewAdded, nil)
	require.NoError(t, bus.Publish(ctx, channel, event))

	select {
	case got, ok := <-fresh:
		require.True(t, ok, "new subscriber was closed by the old receiver")
		assert.Equal(t, event.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestReleaseSubscription_IgnoresReplacedSubscription(t *testing.T) {
	bus := NewRedisEventBus(nil).(*RedisEventBus)
	channel := providers.GetSalonChannel("salon-1")

	stale, current := &redis.PubSub{}, &redis.PubSub{}
	listener := make(chan *entities.SalonEvent, 1)
	bus.subscriptions[channel] = current
	bus.subscribers[channel] = map[chan *entities.SalonEvent]struct{}{listener: {}}

	require.NoError(t, bus.releaseSubscription(channel, stale))

	assert.Same(t, current, bus.subscriptions[channel])
	assert.Equal(t, 1, bus.SubscriberCount(channel))
	select {
	case _, ok := <-listener:
		assert.True(t, ok)
	default:
	}
}

func TestCloneEvent_CopiesChangedFields(t *testing.T) {
	event := entities.NewSalonEvent("salon-1", entities.SalonEventTypeUpdated, map[string]interface{}{"name": "Glow"})

	clone := cloneEvent(event)
	clone.ChangedFields["name"] = "Other"

	assert.Equal(t, "Glow", event.ChangedFields["name"])
	assert.Equal(t, event.ID, clone.ID)
}
