package entities

import (
	"time"

	"github.com/google/uuid"
)

// SalonEventType represents the type of salon event
type SalonEventType string

const (
	SalonEventTypeCreated       SalonEventType = "salon_created"
	SalonEventTypeUpdated       SalonEventType = "salon_updated"
	SalonEventTypeDeleted       SalonEventType = "salon_deleted"
	SalonEventTypeRatingUpdated SalonEventType = "rating_updated"
	SalonEventTypeReviewAdded   SalonEventType = "review_added"
	SalonEventTypeReviewRemoved SalonEventType = "review_removed"
)

// SalonEvent is published whenever a salon or its reviews change
type SalonEvent struct {
	ID            string                 `json:"id"`
	SalonID       string                 `json:"salon_id"`
	EventType     SalonEventType         `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	ChangedFields map[string]interface{} `json:"changed_fields,omitempty"`
}

// NewSalonEvent creates a new salon event
func NewSalonEvent(salonID string, eventType SalonEventType, changedFields map[string]interface{}) *SalonEvent {
	return &SalonEvent{
		ID:            uuid.New().String(),
		SalonID:       salonID,
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		ChangedFields: changedFields,
	}
}
