package providers

import (
	"context"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.SalonEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SalonEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelSalonUpdates is the channel for all salon updates
	EventChannelSalonUpdates = "salon:updates"

	// EventChannelSalonPrefix is the prefix for salon-specific channels
	EventChannelSalonPrefix = "salon:"
)

// GetSalonChannel returns the channel name for a specific salon
func GetSalonChannel(salonID string) string {
	return EventChannelSalonPrefix + salonID
}
