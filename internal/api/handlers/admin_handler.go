package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/salonbooking/backend/internal/api/middleware"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
)

// SalonAdmin defines the salon mutations available to admins
type SalonAdmin interface {
	Create(ctx context.Context, actorID string, input services.SalonInput) (*entities.Salon, error)
	Update(ctx context.Context, actorID, id string, input services.SalonInput) (*entities.Salon, error)
	Delete(ctx context.Context, actorID, id string) error
}

// HistoryManager exposes the rollback log
type HistoryManager interface {
	List(ctx context.Context, filter repositories.HistoryFilter) ([]*entities.HistoryEntry, error)
	Rollback(ctx context.Context, actorID, entryID string) (*entities.HistoryEntry, error)
	Undo(ctx context.Context, actorID string) (*entities.HistoryEntry, error)
}

// RatingRecalculator recomputes salon ratings on demand
type RatingRecalculator interface {
	RecalculateSalonRating(ctx context.Context, salonID string) (*entities.RatingSummary, error)
	RecalculateAll(ctx context.Context) (*services.RecalcReport, error)
}

// AdminHandler handles admin-only endpoints
type AdminHandler struct {
	salons  SalonAdmin
	history HistoryManager
	ratings RatingRecalculator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(salons SalonAdmin, history HistoryManager, ratings RatingRecalculator) *AdminHandler {
	return &AdminHandler{salons: salons, history: history, ratings: ratings}
}

func actorID(r *http.Request) string {
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		return identity.UserID
	}
	return ""
}

// CreateSalon handles POST /api/admin/salons
func (h *AdminHandler) CreateSalon(w http.ResponseWriter, r *http.Request) {
	var input services.SalonInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	salon, err := h.salons.Create(r.Context(), actorID(r), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, salon)
}

// UpdateSalon handles PATCH /api/admin/salons/{id}
func (h *AdminHandler) UpdateSalon(w http.ResponseWriter, r *http.Request) {
	var input services.SalonInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	salon, err := h.salons.Update(r.Context(), actorID(r), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, salon)
}

// DeleteSalon handles DELETE /api/admin/salons/{id}
func (h *AdminHandler) DeleteSalon(w http.ResponseWriter, r *http.Request) {
	if err := h.salons.Delete(r.Context(), actorID(r), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHistory handles GET /api/admin/history
func (h *AdminHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	includeRolledBack, _ := strconv.ParseBool(q.Get("include_rolled_back"))

	entries, err := h.history.List(r.Context(), repositories.HistoryFilter{
		Action:            entities.HistoryAction(strings.TrimSpace(q.Get("action"))),
		EntityID:          strings.TrimSpace(q.Get("entity_id")),
		IncludeRolledBack: includeRolledBack,
		Limit:             limit,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// RollbackHistory handles POST /api/admin/history/{id}/rollback
func (h *AdminHandler) RollbackHistory(w http.ResponseWriter, r *http.Request) {
	entry, err := h.history.Rollback(r.Context(), actorID(r), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// UndoHistory handles POST /api/admin/history/undo
func (h *AdminHandler) UndoHistory(w http.ResponseWriter, r *http.Request) {
	entry, err := h.history.Undo(r.Context(), actorID(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// RecalculateRatings handles POST /api/admin/ratings/recalculate. A salon_id
// query parameter limits the run to one salon.
func (h *AdminHandler) RecalculateRatings(w http.ResponseWriter, r *http.Request) {
	if salonID := strings.TrimSpace(r.URL.Query().Get("salon_id")); salonID != "" {
		summary, err := h.ratings.RecalculateSalonRating(r.Context(), salonID)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, summary)
		return
	}

	report, err := h.ratings.RecalculateAll(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}
