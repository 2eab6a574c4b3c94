package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

const reviewsTable = "reviews"

var reviewColumns = []interface{}{"id", "user_id", "salon_id", "rating", "comment", "created_at"}

// ReviewAdapter implements the ReviewRepository interface
type ReviewAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReviewAdapter creates a new review adapter
func NewReviewAdapter(client *postgres.Client) repositories.ReviewRepository {
	return &ReviewAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a review. A second review by the same user for the same
// salon is rejected by the unique constraint.
func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) error {
	record := goqu.Record{
		"id":         review.ID,
		"user_id":    review.UserID,
		"salon_id":   review.SalonID,
		"rating":     review.Rating,
		"comment":    review.Comment,
		"created_at": review.CreatedAt,
	}

	query, args, err := a.db.Insert(reviewsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build review insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("you have already reviewed this salon")
		}
		return apperrors.NewInternalError("failed to create review", err)
	}
	return nil
}

// GetByID retrieves a review by ID
func (a *ReviewAdapter) GetByID(ctx context.Context, id string) (*entities.Review, error) {
	query, args, err := a.db.From(reviewsTable).
		Select(reviewColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review query", err)
	}

	review, err := scanReview(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get review", err)
	}
	return review, nil
}

// Delete removes a review
func (a *ReviewAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(reviewsTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build review delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete review", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", id))
	}
	return nil
}

// ExistsForUser reports whether the user already reviewed the salon
func (a *ReviewAdapter) ExistsForUser(ctx context.Context, salonID, userID string) (bool, error) {
	query, args, err := a.db.From(reviewsTable).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"salon_id": salonID, "user_id": userID}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build review exists query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, apperrors.NewInternalError("failed to check existing review", err)
	}
	return count > 0, nil
}

// ListBySalon returns a page of reviews for a salon
func (a *ReviewAdapter) ListBySalon(ctx context.Context, salonID string, page repositories.Page) ([]*entities.Review, error) {
	ds := a.db.From(reviewsTable).
		Select(reviewColumns...).
		Where(goqu.Ex{"salon_id": salonID})

	switch page.Order {
	case repositories.ReviewOrderStable:
		ds = ds.Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
	default:
		ds = ds.Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	}

	if page.Limit > 0 {
		ds = ds.Limit(uint(page.Limit))
	}
	if page.Offset > 0 {
		ds = ds.Offset(uint(page.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list reviews", err)
	}
	defer rows.Close()

	reviews := []*entities.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan review", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating reviews", err)
	}
	return reviews, nil
}

// CountBySalon returns the number of reviews for a salon
func (a *ReviewAdapter) CountBySalon(ctx context.Context, salonID string) (int, error) {
	query, args, err := a.db.From(reviewsTable).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"salon_id": salonID}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build review count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count reviews", err)
	}
	return count, nil
}

func scanReview(row rowScanner) (*entities.Review, error) {
	review := &entities.Review{}
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.SalonID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return review, nil
}
