package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
	"github.com/zatekoja/salonbooking/backend/pkg/utils"
)

// Sort orders accepted by Search
const (
	SortByRating   = repositories.SalonSortRating
	SortByDistance = repositories.SalonSortDistance
	SortByName     = repositories.SalonSortName
	SortByNewest   = repositories.SalonSortNewest
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	reindexPageSize    = 500
)

// SalonQuery describes a salon search
type SalonQuery struct {
	Query         string
	Specialties   []string
	MinRating     float64
	MaxPriceLevel int
	Position      *entities.Position
	Sort          string
	Limit         int
	Offset        int
}

// SearchResult is one page of search results
type SearchResult struct {
	Salons []*entities.SalonListing `json:"salons"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
	Sort   string                   `json:"sort"`
}

// SalonInput holds the editable fields of a salon
type SalonInput struct {
	Name        string            `json:"name" validate:"required,min=2,max=120"`
	Image       string            `json:"image" validate:"omitempty,url"`
	Description string            `json:"description" validate:"max=2000"`
	Location    entities.Location `json:"location"`
	Specialties []string          `json:"specialties" validate:"dive,min=1,max=40"`
	PriceLevel  int               `json:"price_level" validate:"min=1,max=4"`
}

// SalonService handles salon browsing and admin mutations
type SalonService struct {
	repo     repositories.SalonRepository
	search   repositories.SalonSearchRepository
	history  HistoryRecorder
	eventBus providers.EventBus
}

// NewSalonService creates a new salon service. search and eventBus may be nil.
func NewSalonService(
	repo repositories.SalonRepository,
	search repositories.SalonSearchRepository,
	history HistoryRecorder,
	eventBus providers.EventBus,
) *SalonService {
	return &SalonService{repo: repo, search: search, history: history, eventBus: eventBus}
}

// Get retrieves an active salon
func (s *SalonService) Get(ctx context.Context, id string) (*entities.Salon, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves salons with repository filters
func (s *SalonService) List(ctx context.Context, filter repositories.SalonFilter) ([]*entities.Salon, error) {
	return s.repo.List(ctx, filter)
}

// Search filters, sorts and pages salons. When a position is supplied every
// result carries its distance from it.
func (s *SalonService) Search(ctx context.Context, q SalonQuery) (*SearchResult, error) {
	sortBy := strings.ToLower(strings.TrimSpace(q.Sort))
	switch sortBy {
	case "":
		sortBy = SortByRating
	case SortByRating, SortByName, SortByNewest:
	case SortByDistance:
		if q.Position == nil {
			return nil, apperrors.NewValidationError("sorting by distance requires a position")
		}
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown sort %q", q.Sort))
	}
	if q.MinRating < 0 || q.MinRating > 5 {
		return nil, apperrors.NewValidationError("min_rating must be between 0 and 5")
	}
	if q.MaxPriceLevel < 0 || q.MaxPriceLevel > 4 {
		return nil, apperrors.NewValidationError("max_price must be between 1 and 4")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	filter := repositories.SalonFilter{
		Query:         q.Query,
		Specialties:   q.Specialties,
		MinRating:     q.MinRating,
		MaxPriceLevel: q.MaxPriceLevel,
		Sort:          sortBy,
		Near:          q.Position,
		Limit:         limit,
		Offset:        offset,
	}
	result := &SearchResult{
		Salons: []*entities.SalonListing{},
		Limit:  limit,
		Offset: offset,
		Sort:   sortBy,
	}

	filter = s.restrictToIndexHits(ctx, filter)
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return result, nil
	}

	salons, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, salon := range salons {
		listing := &entities.SalonListing{Salon: salon}
		if q.Position != nil && salon.Location.HasCoordinates() {
			km := utils.RoundTo(utils.HaversineKm(
				utils.Point{Latitude: q.Position.Latitude, Longitude: q.Position.Longitude},
				utils.Point{Latitude: *salon.Location.Latitude, Longitude: *salon.Location.Longitude},
			), 2)
			listing.DistanceKm = &km
			listing.DistanceLabel = utils.FormatDistance(km)
		}
		result.Salons = append(result.Salons, listing)
	}
	result.Total = total
	return result, nil
}

// restrictToIndexHits resolves free text through the search index when one
// is configured, replacing the text match with the matching IDs. If the
// index fails the repository's own text match is used.
func (s *SalonService) restrictToIndexHits(ctx context.Context, filter repositories.SalonFilter) repositories.SalonFilter {
	if s.search == nil || strings.TrimSpace(filter.Query) == "" {
		return filter
	}

	ids, err := s.search.SearchIDs(ctx, filter)
	if err != nil {
		log.Warn().Err(err).Msg("Search index unavailable, falling back to database")
		return filter
	}
	if ids == nil {
		ids = []string{}
	}
	filter.IDs = ids
	filter.Query = ""
	return filter
}

// Create adds a salon (admin)
func (s *SalonService) Create(ctx context.Context, actorID string, input SalonInput) (*entities.Salon, error) {
	if err := validateSalonInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	salon := &entities.Salon{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applySalonInput(salon, input)

	if err := s.repo.Create(ctx, salon); err != nil {
		return nil, err
	}

	undo := func(ctx context.Context) error { return s.repo.Delete(ctx, salon.ID) }
	if err := s.record(ctx, entities.HistoryActionSalonCreate, salon, nil, salon, actorID,
		fmt.Sprintf("Created salon %q", salon.Name), undo); err != nil {
		return nil, err
	}
	s.afterChange(ctx, salon, entities.SalonEventTypeCreated, nil)
	return salon, nil
}

// Update replaces a salon's editable fields (admin)
func (s *SalonService) Update(ctx context.Context, actorID, id string, input SalonInput) (*entities.Salon, error) {
	if err := validateSalonInput(input); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := current.Clone()

	updated := current.Clone()
	applySalonInput(updated, input)
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}

	undo := func(ctx context.Context) error { return s.repo.Update(ctx, before.Clone()) }
	if err := s.record(ctx, entities.HistoryActionSalonUpdate, updated, before, updated, actorID,
		fmt.Sprintf("Updated salon %q", updated.Name), undo); err != nil {
		return nil, err
	}
	s.afterChange(ctx, updated, entities.SalonEventTypeUpdated, changedFields(before, updated))
	return updated, nil
}

// Delete soft-deletes a salon (admin)
func (s *SalonService) Delete(ctx context.Context, actorID, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	undo := func(ctx context.Context) error { return s.repo.Restore(ctx, current.Clone()) }
	if err := s.record(ctx, entities.HistoryActionSalonDelete, current, current, nil, actorID,
		fmt.Sprintf("Deleted salon %q", current.Name), undo); err != nil {
		return err
	}
	s.afterChange(ctx, current, entities.SalonEventTypeDeleted, nil)
	return nil
}

// RevertCreate undoes a salon creation by soft-deleting it. No history is recorded.
func (s *SalonService) RevertCreate(ctx context.Context, id string) error {
	salon, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.afterChange(ctx, salon, entities.SalonEventTypeDeleted, nil)
	return nil
}

// RevertUpdate writes a previous snapshot back. No history is recorded.
func (s *SalonService) RevertUpdate(ctx context.Context, snapshot *entities.Salon) error {
	if err := s.repo.Update(ctx, snapshot); err != nil {
		return err
	}
	s.afterChange(ctx, snapshot, entities.SalonEventTypeUpdated, nil)
	return nil
}

// RevertDelete re-activates a deleted salon from its snapshot. No history is recorded.
func (s *SalonService) RevertDelete(ctx context.Context, snapshot *entities.Salon) error {
	if err := s.repo.Restore(ctx, snapshot); err != nil {
		return err
	}
	s.afterChange(ctx, snapshot, entities.SalonEventTypeCreated, nil)
	return nil
}

// Reindex pushes every active salon into the search index
func (s *SalonService) Reindex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, apperrors.NewValidationError("search index is not configured")
	}
	indexed := 0
	for offset := 0; ; offset += reindexPageSize {
		salons, err := s.repo.List(ctx, repositories.SalonFilter{Limit: reindexPageSize, Offset: offset})
		if err != nil {
			return indexed, err
		}
		for _, salon := range salons {
			if err := s.search.Index(ctx, salon); err != nil {
				return indexed, fmt.Errorf("failed to index salon %s: %w", salon.ID, err)
			}
			indexed++
		}
		if len(salons) < reindexPageSize {
			return indexed, nil
		}
	}
}

// record appends the history entry of a change that has been written. If the
// entry cannot be stored, undo reverts the change so nothing is left that
// rollback cannot see.
func (s *SalonService) record(
	ctx context.Context,
	action entities.HistoryAction,
	salon, before, after *entities.Salon,
	actorID, description string,
	undo func(context.Context) error,
) error {
	if s.history == nil {
		return nil
	}

	var err error
	entry := &entities.HistoryEntry{
		Action:      action,
		EntityID:    salon.ID,
		Description: description,
		ActorID:     actorID,
	}
	if before != nil {
		entry.Before, err = json.Marshal(before)
	}
	if err == nil && after != nil {
		entry.After, err = json.Marshal(after)
	}
	if err == nil {
		err = s.history.Record(ctx, entry)
	}
	if err == nil {
		return nil
	}

	log.Error().Err(err).Str("salon_id", salon.ID).Str("action", string(action)).Msg("Failed to record salon history")
	if undoErr := undo(ctx); undoErr != nil {
		log.Error().Err(undoErr).Str("salon_id", salon.ID).Msg("Failed to revert salon change after history failure")
	}
	return apperrors.NewInternalError("failed to record salon history", err)
}

// afterChange updates the search index and publishes an event. Both are best effort.
func (s *SalonService) afterChange(ctx context.Context, salon *entities.Salon, eventType entities.SalonEventType, changed map[string]interface{}) {
	if s.search != nil {
		var err error
		if eventType == entities.SalonEventTypeDeleted {
			err = s.search.Delete(ctx, salon.ID)
		} else {
			err = s.search.Index(ctx, salon)
		}
		if err != nil {
			log.Warn().Err(err).Str("salon_id", salon.ID).Msg("Failed to update search index")
		}
	}

	if s.eventBus != nil {
		event := entities.NewSalonEvent(salon.ID, eventType, changed)
		if err := publishSalonEvent(ctx, s.eventBus, event); err != nil {
			log.Warn().Err(err).Str("salon_id", salon.ID).Msg("Failed to publish salon event")
		}
	}
}

func validateSalonInput(input SalonInput) error {
	name := strings.TrimSpace(input.Name)
	if len(name) < 2 || len(name) > 120 {
		return apperrors.NewValidationError("name must be between 2 and 120 characters")
	}
	if input.PriceLevel < 1 || input.PriceLevel > 4 {
		return apperrors.NewValidationError("price_level must be between 1 and 4")
	}
	loc := input.Location
	if (loc.Latitude == nil) != (loc.Longitude == nil) {
		return apperrors.NewValidationError("latitude and longitude must be given together")
	}
	if loc.HasCoordinates() && !utils.ValidCoordinates(*loc.Latitude, *loc.Longitude) {
		return apperrors.NewValidationError("coordinates are out of range")
	}
	return nil
}

func applySalonInput(salon *entities.Salon, input SalonInput) {
	salon.Name = strings.TrimSpace(input.Name)
	salon.Image = strings.TrimSpace(input.Image)
	salon.Description = strings.TrimSpace(input.Description)
	salon.Location = input.Location
	salon.PriceLevel = input.PriceLevel

	specs := make([]string, 0, len(input.Specialties))
	seen := map[string]struct{}{}
	for _, sp := range input.Specialties {
		sp = strings.ToLower(strings.TrimSpace(sp))
		if _, dup := seen[sp]; sp == "" || dup {
			continue
		}
		seen[sp] = struct{}{}
		specs = append(specs, sp)
	}
	salon.Specialties = specs
}

func changedFields(before, after *entities.Salon) map[string]interface{} {
	changed := map[string]interface{}{}
	if before.Name != after.Name {
		changed["name"] = after.Name
	}
	if before.Image != after.Image {
		changed["image"] = after.Image
	}
	if before.Description != after.Description {
		changed["description"] = after.Description
	}
	if before.PriceLevel != after.PriceLevel {
		changed["price_level"] = after.PriceLevel
	}
	if strings.Join(before.Specialties, ",") != strings.Join(after.Specialties, ",") {
		changed["specialties"] = after.Specialties
	}
	if before.Location.Address != after.Location.Address || before.Location.City != after.Location.City {
		changed["location"] = after.Location
	}
	return changed
}
