package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

// SalonReverter re-issues the inverse of salon mutations without recording history
type SalonReverter interface {
	RevertCreate(ctx context.Context, id string) error
	RevertUpdate(ctx context.Context, snapshot *entities.Salon) error
	RevertDelete(ctx context.Context, snapshot *entities.Salon) error
}

// ReviewRestorer re-inserts a deleted review without recording history
type ReviewRestorer interface {
	Restore(ctx context.Context, review *entities.Review) error
}

// HistoryService keeps the admin rollback log and undoes entries on request
type HistoryService struct {
	repo    repositories.HistoryRepository
	salons  SalonReverter
	reviews ReviewRestorer
	metrics *observability.Metrics
	now     func() time.Time
}

// NewHistoryService creates a history service. The reverters may be set
// later with SetReverters to break the construction cycle with the services
// that record into it.
func NewHistoryService(repo repositories.HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo, now: time.Now}
}

// SetReverters wires the services used to apply inverse mutations
func (s *HistoryService) SetReverters(salons SalonReverter, reviews ReviewRestorer) {
	s.salons = salons
	s.reviews = reviews
}

// WithMetrics attaches OTEL counters
func (s *HistoryService) WithMetrics(metrics *observability.Metrics) *HistoryService {
	s.metrics = metrics
	return s
}

// Record appends an entry, filling in id, timestamp and description
func (s *HistoryService) Record(ctx context.Context, entry *entities.HistoryEntry) error {
	if entry == nil {
		return apperrors.NewValidationError("history entry is required")
	}
	if !entry.Action.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown history action %q", entry.Action))
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.Description == "" {
		entry.Description = fmt.Sprintf("%s %s", entry.Action, entry.EntityID)
	}
	return s.repo.Append(ctx, entry)
}

// List returns entries newest first
func (s *HistoryService) List(ctx context.Context, filter repositories.HistoryFilter) ([]*entities.HistoryEntry, error) {
	return s.repo.List(ctx, filter)
}

// Rollback applies the inverse of an entry and marks it rolled back. When the
// inverse fails the entry is left unmarked.
func (s *HistoryService) Rollback(ctx context.Context, actorID, entryID string) (*entities.HistoryEntry, error) {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.RolledBack() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("history entry %s was already rolled back", entryID))
	}

	if err := s.applyInverse(ctx, entry); err != nil {
		observability.RecordRollback(ctx, s.metrics, string(entry.Action), false)
		log.Error().Err(err).Str("entry_id", entry.ID).Str("action", string(entry.Action)).Msg("Rollback failed")
		return nil, err
	}

	at := s.now().UTC()
	if err := s.repo.MarkRolledBack(ctx, entry.ID, actorID, at); err != nil {
		return nil, err
	}
	entry.RolledBackAt = &at
	entry.RolledBackBy = actorID

	observability.RecordRollback(ctx, s.metrics, string(entry.Action), true)
	log.Info().Str("entry_id", entry.ID).Str("action", string(entry.Action)).Str("actor_id", actorID).Msg("History entry rolled back")
	return entry, nil
}

// Undo rolls back the most recent entry that has not been rolled back yet
func (s *HistoryService) Undo(ctx context.Context, actorID string) (*entities.HistoryEntry, error) {
	entries, err := s.repo.List(ctx, repositories.HistoryFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperrors.NewNotFoundError("nothing to undo")
	}
	return s.Rollback(ctx, actorID, entries[0].ID)
}

// Prune drops rolled-back entries older than retention
func (s *HistoryService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repo.PruneRolledBack(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("Pruned rolled-back history entries")
	}
	return n, nil
}

func (s *HistoryService) applyInverse(ctx context.Context, entry *entities.HistoryEntry) error {
	if s.salons == nil || s.reviews == nil {
		return apperrors.NewInternalError("rollback is not configured", nil)
	}

	switch entry.Action {
	case entities.HistoryActionSalonCreate:
		return s.salons.RevertCreate(ctx, entry.EntityID)

	case entities.HistoryActionSalonUpdate:
		var before entities.Salon
		if err := entry.DecodeBefore(&before); err != nil {
			return apperrors.NewInternalError("history entry has no usable before snapshot", err)
		}
		return s.salons.RevertUpdate(ctx, &before)

	case entities.HistoryActionSalonDelete:
		var before entities.Salon
		if err := entry.DecodeBefore(&before); err != nil {
			return apperrors.NewInternalError("history entry has no usable before snapshot", err)
		}
		return s.salons.RevertDelete(ctx, &before)

	case entities.HistoryActionReviewDelete:
		var before entities.Review
		if err := entry.DecodeBefore(&before); err != nil {
			return apperrors.NewInternalError("history entry has no usable before snapshot", err)
		}
		return s.reviews.Restore(ctx, &before)
	}

	return apperrors.NewValidationError(fmt.Sprintf("cannot roll back action %q", entry.Action))
}
