package services

import (
	"context"
	"errors"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

// publishSalonEvent sends an event to the global updates channel and to the
// salon's own channel, which live streams subscribe to
func publishSalonEvent(ctx context.Context, bus providers.EventBus, event *entities.SalonEvent) error {
	if bus == nil {
		return nil
	}
	return errors.Join(
		bus.Publish(ctx, providers.EventChannelSalonUpdates, event),
		bus.Publish(ctx, providers.GetSalonChannel(event.SalonID), event),
	)
}
