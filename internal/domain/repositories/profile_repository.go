package repositories

import (
	"context"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// ProfileRepository defines the interface for profile operations
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entities.Profile, error)
	GetByUserIDs(ctx context.Context, userIDs []string) ([]*entities.Profile, error)
	Upsert(ctx context.Context, profile *entities.Profile) error
}
