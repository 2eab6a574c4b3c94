package entities

import (
	"encoding/json"
	"time"
)

// HistoryAction identifies a recorded admin mutation
type HistoryAction string

const (
	HistoryActionSalonCreate  HistoryAction = "salon.create"
	HistoryActionSalonUpdate  HistoryAction = "salon.update"
	HistoryActionSalonDelete  HistoryAction = "salon.delete"
	HistoryActionReviewDelete HistoryAction = "review.delete"
)

// Valid reports whether the action is one the rollback log knows how to invert
func (a HistoryAction) Valid() bool {
	switch a {
	case HistoryActionSalonCreate, HistoryActionSalonUpdate, HistoryActionSalonDelete, HistoryActionReviewDelete:
		return true
	}
	return false
}

// HistoryEntry is one record in the admin rollback log. Before and After hold
// JSON snapshots of the entity around the mutation.
type HistoryEntry struct {
	ID           string          `json:"id"`
	Action       HistoryAction   `json:"action"`
	EntityID     string          `json:"entity_id"`
	Description  string          `json:"description"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	ActorID      string          `json:"actor_id"`
	CreatedAt    time.Time       `json:"created_at"`
	RolledBackAt *time.Time      `json:"rolled_back_at,omitempty"`
	RolledBackBy string          `json:"rolled_back_by,omitempty"`
}

// RolledBack reports whether the entry has already been undone
func (e *HistoryEntry) RolledBack() bool {
	return e.RolledBackAt != nil
}

// DecodeBefore unmarshals the before snapshot into v
func (e *HistoryEntry) DecodeBefore(v interface{}) error {
	return json.Unmarshal(e.Before, v)
}

// DecodeAfter unmarshals the after snapshot into v
func (e *HistoryEntry) DecodeAfter(v interface{}) error {
	return json.Unmarshal(e.After, v)
}
