package repositories

import (
	"context"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// ReviewRepository defines the interface for review data operations
type ReviewRepository interface {
	// Create inserts a review
	Create(ctx context.Context, review *entities.Review) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id string) (*entities.Review, error)

	// Delete removes a review
	Delete(ctx context.Context, id string) error

	// ExistsForUser reports whether the user already reviewed the salon
	ExistsForUser(ctx context.Context, salonID, userID string) (bool, error)

	// ListBySalon returns a page of reviews for a salon
	ListBySalon(ctx context.Context, salonID string, page Page) ([]*entities.Review, error)

	// CountBySalon returns the number of reviews for a salon
	CountBySalon(ctx context.Context, salonID string) (int, error)
}

// ReviewOrder selects the ordering used when paging reviews
type ReviewOrder int

const (
	// ReviewOrderNewest orders by created_at descending (listing)
	ReviewOrderNewest ReviewOrder = iota
	// ReviewOrderStable orders by created_at, id ascending (aggregation scans)
	ReviewOrderStable
)

// Page describes a window of rows
type Page struct {
	Limit  int
	Offset int
	Order  ReviewOrder
}
