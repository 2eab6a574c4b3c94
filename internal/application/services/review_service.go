package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/application/loaders"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

// Review listing limits
const (
	DefaultReviewPageSize = 10
	MaxReviewPageSize     = 50
)

// ReviewService handles review submission, listing and moderation
type ReviewService struct {
	reviewRepo  repositories.ReviewRepository
	salonRepo   repositories.SalonRepository
	profileRepo repositories.ProfileRepository
	ratings     *RatingService
	history     HistoryRecorder
	eventBus    providers.EventBus
}

// HistoryRecorder appends entries to the admin rollback log
type HistoryRecorder interface {
	Record(ctx context.Context, entry *entities.HistoryEntry) error
}

// NewReviewService creates a new review service
func NewReviewService(
	reviewRepo repositories.ReviewRepository,
	salonRepo repositories.SalonRepository,
	profileRepo repositories.ProfileRepository,
	ratings *RatingService,
	history HistoryRecorder,
	eventBus providers.EventBus,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		salonRepo:   salonRepo,
		profileRepo: profileRepo,
		ratings:     ratings,
		history:     history,
		eventBus:    eventBus,
	}
}

// SubmitResult is a stored review together with the salon's new rating
type SubmitResult struct {
	Review  *entities.Review        `json:"review"`
	Summary *entities.RatingSummary `json:"summary"`
}

// Submit validates and stores a review, then recomputes the salon rating.
// Invalid input is rejected before any repository call.
func (s *ReviewService) Submit(ctx context.Context, review *entities.Review) (*SubmitResult, error) {
	if err := entities.ValidateReview(review); err != nil {
		return nil, err
	}

	if _, err := s.salonRepo.GetByID(ctx, review.SalonID); err != nil {
		return nil, err
	}

	exists, err := s.reviewRepo.ExistsForUser(ctx, review.SalonID, review.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflictError("you have already reviewed this salon")
	}

	review.ID = uuid.New().String()
	review.CreatedAt = time.Now().UTC()
	review.Author = nil

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	summary, err := s.ratings.RecalculateSalonRating(ctx, review.SalonID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, review.SalonID, entities.SalonEventTypeReviewAdded, review.ID)
	return &SubmitResult{Review: review, Summary: summary}, nil
}

// ReviewPage is one page of a salon's reviews
type ReviewPage struct {
	Reviews []*entities.Review `json:"reviews"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// ListForSalon returns reviews newest first, each with its author's profile
func (s *ReviewService) ListForSalon(ctx context.Context, salonID string, limit, offset int) (*ReviewPage, error) {
	if limit <= 0 {
		limit = DefaultReviewPageSize
	}
	if limit > MaxReviewPageSize {
		limit = MaxReviewPageSize
	}
	if offset < 0 {
		offset = 0
	}

	reviews, err := s.reviewRepo.ListBySalon(ctx, salonID, repositories.Page{
		Limit:  limit,
		Offset: offset,
		Order:  repositories.ReviewOrderNewest,
	})
	if err != nil {
		return nil, err
	}

	total, err := s.reviewRepo.CountBySalon(ctx, salonID)
	if err != nil {
		return nil, err
	}

	if err := s.attachAuthors(ctx, reviews); err != nil {
		// author names are decoration; a failed lookup does not fail the listing
		log.Warn().Err(err).Str("salon_id", salonID).Msg("Failed to load review authors")
	}

	return &ReviewPage{Reviews: reviews, Total: total, Limit: limit, Offset: offset}, nil
}

// Delete removes a review (admin), records it for rollback and recomputes
// the salon rating. If the history entry cannot be written the review is put
// back and an error is returned.
func (s *ReviewService) Delete(ctx context.Context, actorID, reviewID string) error {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	review.Author = nil

	before, err := json.Marshal(review)
	if err != nil {
		return apperrors.NewInternalError("failed to snapshot review", err)
	}
	entry := &entities.HistoryEntry{
		Action:   entities.HistoryActionReviewDelete,
		EntityID: review.ID,
		Description: fmt.Sprintf("Deleted %d-star review by %s on salon %s",
			review.Rating, review.UserID, review.SalonID),
		Before:  before,
		ActorID: actorID,
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return err
	}

	if err := s.history.Record(ctx, entry); err != nil {
		log.Error().Err(err).Str("review_id", reviewID).Msg("Failed to record review deletion in history")
		if restoreErr := s.reviewRepo.Create(ctx, review); restoreErr != nil {
			log.Error().Err(restoreErr).Str("review_id", reviewID).Msg("Failed to put back review after history failure")
		}
		return apperrors.NewInternalError("failed to record review deletion", err)
	}

	if _, err := s.ratings.RecalculateSalonRating(ctx, review.SalonID); err != nil {
		return err
	}

	s.publish(ctx, review.SalonID, entities.SalonEventTypeReviewRemoved, review.ID)
	return nil
}

// Restore re-inserts a deleted review exactly as it was and recomputes the
// salon rating. It does not record history.
func (s *ReviewService) Restore(ctx context.Context, review *entities.Review) error {
	if review == nil || review.ID == "" {
		return apperrors.NewValidationError("review snapshot is required")
	}
	review.Author = nil

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return err
	}

	if _, err := s.ratings.RecalculateSalonRating(ctx, review.SalonID); err != nil {
		return err
	}

	s.publish(ctx, review.SalonID, entities.SalonEventTypeReviewAdded, review.ID)
	return nil
}

func (s *ReviewService) attachAuthors(ctx context.Context, reviews []*entities.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	l := loaders.For(ctx)
	if l == nil {
		l = loaders.NewLoaders(s.profileRepo)
	}

	seen := make(map[string]struct{}, len(reviews))
	userIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			userIDs = append(userIDs, r.UserID)
		}
	}

	profiles, err := l.LoadProfiles(ctx, userIDs)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		r.Author = profiles[r.UserID]
	}
	return nil
}

func (s *ReviewService) publish(ctx context.Context, salonID string, eventType entities.SalonEventType, reviewID string) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewSalonEvent(salonID, eventType, map[string]interface{}{"review_id": reviewID})
	if err := publishSalonEvent(ctx, s.eventBus, event); err != nil {
		log.Warn().Err(err).Str("salon_id", salonID).Msg("Failed to publish review event")
	}
}
