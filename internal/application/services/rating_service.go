package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
	"github.com/zatekoja/salonbooking/backend/pkg/utils"
)

// DefaultRatingPageSize is how many reviews are read per query when
// recomputing a salon's rating
const DefaultRatingPageSize = 500

// RatingService owns the cached rating/rating_count rollup on salons
type RatingService struct {
	salonRepo  repositories.SalonRepository
	reviewRepo repositories.ReviewRepository
	eventBus   providers.EventBus
	search     repositories.SalonSearchRepository
	metrics    *observability.Metrics
	pageSize   int
}

// NewRatingService creates a new rating service. eventBus may be nil.
func NewRatingService(salonRepo repositories.SalonRepository, reviewRepo repositories.ReviewRepository, eventBus providers.EventBus) *RatingService {
	return &RatingService{
		salonRepo:  salonRepo,
		reviewRepo: reviewRepo,
		eventBus:   eventBus,
		pageSize:   DefaultRatingPageSize,
	}
}

// WithMetrics attaches OTEL counters
func (s *RatingService) WithMetrics(metrics *observability.Metrics) *RatingService {
	s.metrics = metrics
	return s
}

// WithSearchIndex keeps the indexed rating in step with the salon row
func (s *RatingService) WithSearchIndex(search repositories.SalonSearchRepository) *RatingService {
	s.search = search
	return s
}

// WithPageSize overrides the review page size
func (s *RatingService) WithPageSize(size int) *RatingService {
	if size > 0 {
		s.pageSize = size
	}
	return s
}

// Aggregate computes the rollup of a set of ratings: the mean rounded to one
// decimal and the count. No ratings yields {0, 0}.
func Aggregate(ratings []int) entities.RatingSummary {
	if len(ratings) == 0 {
		return entities.RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return entities.RatingSummary{
		Average: utils.RoundTo(float64(sum)/float64(len(ratings)), 1),
		Count:   len(ratings),
	}
}

// SummaryForSalon reads every review of the salon and aggregates them
func (s *RatingService) SummaryForSalon(ctx context.Context, salonID string) (*entities.RatingSummary, error) {
	ratings := []int{}
	for offset := 0; ; offset += s.pageSize {
		page, err := s.reviewRepo.ListBySalon(ctx, salonID, repositories.Page{
			Limit:  s.pageSize,
			Offset: offset,
			Order:  repositories.ReviewOrderStable,
		})
		if err != nil {
			return nil, err
		}
		for _, review := range page {
			ratings = append(ratings, review.Rating)
		}
		if len(page) < s.pageSize {
			break
		}
	}

	summary := Aggregate(ratings)
	summary.SalonID = salonID
	return &summary, nil
}

// RecalculateSalonRating recomputes the rollup from scratch and stores it on
// the salon row
func (s *RatingService) RecalculateSalonRating(ctx context.Context, salonID string) (*entities.RatingSummary, error) {
	ctx, span := observability.StartSpan(ctx, "RatingService.RecalculateSalonRating")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("salon.id", salonID))

	summary, err := s.SummaryForSalon(ctx, salonID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if err := s.salonRepo.UpdateRating(ctx, salonID, summary.Average, summary.Count); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordRatingRecalculation(ctx, s.metrics, "write")

	s.refreshIndex(ctx, salonID)
	s.publish(ctx, salonID, summary)

	observability.LoggerFromContext(ctx).Debug().
		Str("salon_id", salonID).
		Float64("rating", summary.Average).
		Int("rating_count", summary.Count).
		Msg("Salon rating recalculated")

	return summary, nil
}

// RecalcReport summarises a bulk recalculation
type RecalcReport struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// RecalculateAll recomputes every active salon. A failure on one salon is
// logged and counted; only a failure to list salons aborts the run.
func (s *RatingService) RecalculateAll(ctx context.Context) (*RecalcReport, error) {
	report := &RecalcReport{}
	start := time.Now()

	for offset := 0; ; offset += s.pageSize {
		salons, err := s.salonRepo.List(ctx, repositories.SalonFilter{Limit: s.pageSize, Offset: offset})
		if err != nil {
			return report, fmt.Errorf("failed to list salons: %w", err)
		}

		for _, salon := range salons {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Total++
			if _, err := s.RecalculateSalonRating(ctx, salon.ID); err != nil {
				report.Failed++
				log.Error().Err(err).Str("salon_id", salon.ID).Msg("Failed to recalculate salon rating")
				continue
			}
			report.Updated++
		}

		if len(salons) < s.pageSize {
			break
		}
	}

	observability.RecordRatingRecalculation(ctx, s.metrics, "reconcile")
	log.Info().
		Int("total", report.Total).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Dur("duration", time.Since(start)).
		Msg("Rating reconcile finished")

	return report, nil
}

// refreshIndex re-indexes the salon so rating filters on the index match the
// database. Inactive salons are not indexed.
func (s *RatingService) refreshIndex(ctx context.Context, salonID string) {
	if s.search == nil {
		return
	}
	salon, err := s.salonRepo.GetByID(ctx, salonID)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return
	}
	if err == nil {
		err = s.search.Index(ctx, salon)
	}
	if err != nil {
		log.Warn().Err(err).Str("salon_id", salonID).Msg("Failed to refresh salon rating in search index")
	}
}

func (s *RatingService) publish(ctx context.Context, salonID string, summary *entities.RatingSummary) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewSalonEvent(salonID, entities.SalonEventTypeRatingUpdated, map[string]interface{}{
		"rating":       summary.Average,
		"rating_count": summary.Count,
	})
	if err := publishSalonEvent(ctx, s.eventBus, event); err != nil {
		log.Warn().Err(err).Str("salon_id", salonID).Msg("Failed to publish rating event")
	}
}
