package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

const profilesTable = "profiles"

// ProfileAdapter implements the ProfileRepository interface
type ProfileAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProfileAdapter creates a new profile adapter
func NewProfileAdapter(client *postgres.Client) repositories.ProfileRepository {
	return &ProfileAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByUserID retrieves the profile of a user
func (a *ProfileAdapter) GetByUserID(ctx context.Context, userID string) (*entities.Profile, error) {
	query, args, err := a.db.From(profilesTable).
		Select("user_id", "name", "profile_image", "updated_at").
		Where(goqu.Ex{"user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build profile query", err)
	}

	profile := &entities.Profile{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).
		Scan(&profile.UserID, &profile.Name, &profile.ProfileImage, &profile.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("profile for user %s not found", userID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get profile", err)
	}
	return profile, nil
}

// GetByUserIDs retrieves the profiles that exist for the given users
func (a *ProfileAdapter) GetByUserIDs(ctx context.Context, userIDs []string) ([]*entities.Profile, error) {
	if len(userIDs) == 0 {
		return []*entities.Profile{}, nil
	}

	query, args, err := a.db.From(profilesTable).
		Select("user_id", "name", "profile_image", "updated_at").
		Where(goqu.Ex{"user_id": userIDs}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build profile query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get profiles", err)
	}
	defer rows.Close()

	profiles := []*entities.Profile{}
	for rows.Next() {
		p := &entities.Profile{}
		if err := rows.Scan(&p.UserID, &p.Name, &p.ProfileImage, &p.UpdatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan profile", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating profiles", err)
	}
	return profiles, nil
}

// Upsert creates or replaces a profile
func (a *ProfileAdapter) Upsert(ctx context.Context, profile *entities.Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	query, args, err := a.db.Insert(profilesTable).
		Rows(goqu.Record{
			"user_id":       profile.UserID,
			"name":          profile.Name,
			"profile_image": profile.ProfileImage,
			"updated_at":    profile.UpdatedAt,
		}).
		OnConflict(goqu.DoUpdate("user_id", goqu.Record{
			"name":          goqu.L("EXCLUDED.name"),
			"profile_image": goqu.L("EXCLUDED.profile_image"),
			"updated_at":    goqu.L("EXCLUDED.updated_at"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build profile upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save profile", err)
	}
	return nil
}
