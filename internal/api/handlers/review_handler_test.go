package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/salonbooking/backend/internal/api/handlers"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

func newReviewMux(reviews *stubReviewService) *http.ServeMux {
	h := handlers.NewReviewHandler(reviews)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/salons/{id}/reviews", h.ListReviews)
	mux.HandleFunc("POST /api/salons/{id}/reviews", h.SubmitReview)
	mux.HandleFunc("DELETE /api/admin/reviews/{id}", h.DeleteReview)
	return mux
}

func postReview(mux http.Handler, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/salons/s1/reviews", strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(withIdentity(req.Context(), userID, entities.RoleUser))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestReviewHandler_SubmitRequiresIdentity(t *testing.T) {
	reviews := &stubReviewService{}
	rec := postReview(newReviewMux(reviews), "", `{"rating":5,"comment":"Lovely braids, quick service"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, reviews.submitted)
}

func TestReviewHandler_Submit(t *testing.T) {
	reviews := &stubReviewService{}
	rec := postReview(newReviewMux(reviews), "user-1", `{"rating":4,"comment":"Lovely braids, quick service"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, reviews.submitted, 1)
	got := reviews.submitted[0]
	assert.Equal(t, "s1", got.SalonID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, 4, got.Rating)

	var result services.SubmitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "review-1", result.Review.ID)
	assert.Equal(t, 1, result.Summary.Count)
}

func TestReviewHandler_SubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty body", ``, "request body is required"},
		{"malformed", `{"rating":`, "invalid request payload"},
		{"missing rating", `{"comment":"Lovely braids, quick service"}`, "rating is required"},
		{"rating too high", `{"rating":6,"comment":"Lovely braids, quick service"}`, "rating must be at most 5"},
		{"missing comment", `{"rating":3}`, "comment is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := &stubReviewService{}
			rec := postReview(newReviewMux(reviews), "user-1", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
			assert.Empty(t, reviews.submitted)
		})
	}
}

func TestReviewHandler_SubmitServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"short comment", apperrors.NewValidationError("Review must be at least 10 characters"), http.StatusBadRequest},
		{"duplicate", apperrors.NewConflictError("you have already reviewed this salon"), http.StatusConflict},
		{"unknown salon", apperrors.NewNotFoundError("salon not found"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postReview(newReviewMux(&stubReviewService{submitErr: tt.err}), "user-1", `{"rating":3,"comment":"ok"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), apperrors.MessageOf(tt.err, ""))
		})
	}
}

func TestReviewHandler_ListPassesPaging(t *testing.T) {
	reviews := &stubReviewService{}
	mux := newReviewMux(reviews)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/salons/s1/reviews?limit=3&offset=6", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", reviews.listSalon)
	assert.Equal(t, 3, reviews.listLimit)
	assert.Equal(t, 6, reviews.listFrom)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/salons/s1/reviews", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.DefaultReviewPageSize, reviews.listLimit)
	assert.Equal(t, 0, reviews.listFrom)
}

func TestReviewHandler_Delete(t *testing.T) {
	reviews := &stubReviewService{}
	mux := newReviewMux(reviews)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/reviews/r9", nil)
	req = req.WithContext(withIdentity(req.Context(), "admin-1", entities.RoleAdmin))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"r9"}, reviews.deleted)
	assert.Equal(t, "admin-1", reviews.deleteBy)
}
