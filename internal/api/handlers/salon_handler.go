package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// SalonService defines the salon operations used by the handler
type SalonService interface {
	Get(ctx context.Context, id string) (*entities.Salon, error)
	Search(ctx context.Context, q services.SalonQuery) (*services.SearchResult, error)
}

// RatingReader reads a salon's rating rollup
type RatingReader interface {
	SummaryForSalon(ctx context.Context, salonID string) (*entities.RatingSummary, error)
}

// SalonHandler handles public salon endpoints
type SalonHandler struct {
	salons   SalonService
	ratings  RatingReader
	resolver *PositionResolver
}

// NewSalonHandler creates a new salon handler
func NewSalonHandler(salons SalonService, ratings RatingReader, resolver *PositionResolver) *SalonHandler {
	return &SalonHandler{salons: salons, ratings: ratings, resolver: resolver}
}

type salonSearchResponse struct {
	*services.SearchResult
	Location *entities.PositionState `json:"location,omitempty"`
}

// SearchSalons handles GET /api/salons
func (h *SalonHandler) SearchSalons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minRating, err := queryFloat(r, "min_rating")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	maxPrice, err := queryInt(r, "max_price", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", services.DefaultSearchLimit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	query := services.SalonQuery{
		Query:         strings.TrimSpace(q.Get("q")),
		Specialties:   queryList(r, "specialty"),
		MinRating:     minRating,
		MaxPriceLevel: maxPrice,
		Sort:          strings.ToLower(strings.TrimSpace(q.Get("sort"))),
		Limit:         limit,
		Offset:        offset,
	}

	var state *entities.PositionState
	if h.resolver != nil {
		state = h.resolver.Resolve(r)
	}
	if state != nil {
		query.Position = state.Position
	}
	// without a position the listing degrades to rating order and the
	// location error is reported alongside the results
	if query.Sort == services.SortByDistance && query.Position == nil {
		query.Sort = services.SortByRating
		if state == nil {
			state = unreportedPosition()
		}
	}

	result, err := h.salons.Search(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, salonSearchResponse{SearchResult: result, Location: state})
}

// GetSalon handles GET /api/salons/{id}
func (h *SalonHandler) GetSalon(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "salon ID is required")
		return
	}

	salon, err := h.salons.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, salon)
}

// GetSalonRating handles GET /api/salons/{id}/rating
func (h *SalonHandler) GetSalonRating(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.salons.Get(r.Context(), id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	summary, err := h.ratings.SummaryForSalon(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
