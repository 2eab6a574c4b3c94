package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// HistoryRepository stores the admin rollback log
type HistoryRepository interface {
	// Append stores a new entry, trimming the oldest entries beyond capacity
	Append(ctx context.Context, entry *entities.HistoryEntry) error

	// Get retrieves an entry by ID
	Get(ctx context.Context, id string) (*entities.HistoryEntry, error)

	// List returns entries newest first
	List(ctx context.Context, filter HistoryFilter) ([]*entities.HistoryEntry, error)

	// MarkRolledBack records that an entry has been undone
	MarkRolledBack(ctx context.Context, id, actorID string, at time.Time) error

	// PruneRolledBack removes rolled-back entries older than the cutoff
	PruneRolledBack(ctx context.Context, before time.Time) (int64, error)
}

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Action            entities.HistoryAction
	EntityID          string
	IncludeRolledBack bool
	Limit             int
}
