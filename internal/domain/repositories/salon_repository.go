package repositories

import (
	"context"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// SalonRepository defines the interface for salon data operations
type SalonRepository interface {
	// Create creates a new salon
	Create(ctx context.Context, salon *entities.Salon) error

	// GetByID retrieves an active salon by ID
	GetByID(ctx context.Context, id string) (*entities.Salon, error)

	// GetByIDs retrieves multiple salons by their IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Salon, error)

	// Update updates a salon
	Update(ctx context.Context, salon *entities.Salon) error

	// UpdateRating writes the cached rating rollup of a salon
	UpdateRating(ctx context.Context, salonID string, average float64, count int) error

	// Delete soft-deletes a salon
	Delete(ctx context.Context, id string) error

	// Restore re-activates a soft-deleted salon with the given snapshot
	Restore(ctx context.Context, salon *entities.Salon) error

	// List retrieves one page of salons with filters, in filter.Sort order
	List(ctx context.Context, filter SalonFilter) ([]*entities.Salon, error)

	// Count returns how many salons match filter, ignoring Limit and Offset
	Count(ctx context.Context, filter SalonFilter) (int, error)
}

// SalonSearchRepository defines full-text search over salons (e.g. Typesense)
type SalonSearchRepository interface {
	// SearchIDs returns the IDs of every salon matching filter. Limit and
	// Offset are ignored.
	SearchIDs(ctx context.Context, filter SalonFilter) ([]string, error)

	// Index upserts a salon document
	Index(ctx context.Context, salon *entities.Salon) error

	// Delete removes a salon from the index
	Delete(ctx context.Context, id string) error
}

// Salon list orders
const (
	SalonSortRating   = "rating"
	SalonSortDistance = "distance"
	SalonSortName     = "name"
	SalonSortNewest   = "newest"
)

// SalonFilter defines filters for listing salons
type SalonFilter struct {
	Query         string
	Specialties   []string
	MinRating     float64
	MaxPriceLevel int
	IncludeAll    bool     // include inactive salons
	IDs           []string // restrict to these salons, e.g. search index hits

	// Sort is one of the SalonSort* values; empty means rating.
	// SalonSortDistance needs Near and falls back to rating without it.
	Sort string
	Near *entities.Position

	Limit  int
	Offset int
}
