package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/salonbooking/backend/internal/api/middleware"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
)

// ReviewService defines the review operations used by the handler
type ReviewService interface {
	Submit(ctx context.Context, review *entities.Review) (*services.SubmitResult, error)
	ListForSalon(ctx context.Context, salonID string, limit, offset int) (*services.ReviewPage, error)
	Delete(ctx context.Context, actorID, reviewID string) error
}

// ReviewHandler handles review endpoints
type ReviewHandler struct {
	reviews ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type submitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=4000"`
}

// ListReviews handles GET /api/salons/{id}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultReviewPageSize)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	page, err := h.reviews.ListForSalon(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

// SubmitReview handles POST /api/salons/{id}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req submitReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.reviews.Submit(r.Context(), &entities.Review{
		SalonID: r.PathValue("id"),
		UserID:  identity.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// DeleteReview handles DELETE /api/admin/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	actorID := ""
	if identity != nil {
		actorID = identity.UserID
	}

	if err := h.reviews.Delete(r.Context(), actorID, r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
