package repositories

import (
	"context"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// UserRepository defines the interface for account operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
