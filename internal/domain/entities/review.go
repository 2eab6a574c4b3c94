package entities

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

// Review validation limits
const (
	MinReviewRating        = 1
	MaxReviewRating        = 5
	MinReviewCommentLength = 10
	MaxReviewCommentLength = 1000
)

// Review is a user's rating and comment for a salon
type Review struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	SalonID   string    `json:"salon_id" db:"salon_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Author *Profile `json:"author,omitempty" db:"-"`
}

// ValidateReview checks a review before it is sent to storage. The comment is
// trimmed in place.
func ValidateReview(review *Review) error {
	if review == nil {
		return apperrors.NewValidationError("review is required")
	}
	if strings.TrimSpace(review.SalonID) == "" {
		return apperrors.NewValidationError("salon id is required")
	}
	if strings.TrimSpace(review.UserID) == "" {
		return apperrors.NewValidationError("user id is required")
	}
	if review.Rating < MinReviewRating || review.Rating > MaxReviewRating {
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}

	review.Comment = strings.TrimSpace(review.Comment)
	length := utf8.RuneCountInString(review.Comment)
	if length < MinReviewCommentLength {
		return apperrors.NewValidationError("comment must be at least 10 characters")
	}
	if length > MaxReviewCommentLength {
		return apperrors.NewValidationError("comment must be at most 1000 characters")
	}
	return nil
}
