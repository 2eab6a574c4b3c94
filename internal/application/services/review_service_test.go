package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

type reviewFixture struct {
	salons   *MockSalonRepository
	reviews  *MockReviewRepository
	profiles *MockProfileRepository
	history  *fakeHistory
	bus      *MockEventBus
	service  *services.ReviewService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		salons:   new(MockSalonRepository),
		reviews:  new(MockReviewRepository),
		profiles: new(MockProfileRepository),
		history:  &fakeHistory{},
		bus:      NewMockEventBus(),
	}
	ratings := services.NewRatingService(f.salons, f.reviews, f.bus)
	f.service = services.NewReviewService(f.reviews, f.salons, f.profiles, ratings, f.history, f.bus)
	return f
}

func TestReviewService_Submit(t *testing.T) {
	t.Run("short comment is rejected before any repository call", func(t *testing.T) {
		f := newReviewFixture()

		_, err := f.service.Submit(context.Background(), &entities.Review{
			SalonID: "salon-1",
			UserID:  "user-1",
			Rating:  4,
			Comment: "  too short ",
		})

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
		f.salons.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		f.reviews.AssertNotCalled(t, "ExistsForUser", mock.Anything, mock.Anything, mock.Anything)
		f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rating out of range is rejected", func(t *testing.T) {
		f := newReviewFixture()

		_, err := f.service.Submit(context.Background(), &entities.Review{
			SalonID: "salon-1",
			UserID:  "user-1",
			Rating:  6,
			Comment: "Lovely braids and a friendly team",
		})

		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
		f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("stores the review and returns the new summary", func(t *testing.T) {
		f := newReviewFixture()
		review := &entities.Review{
			SalonID: "salon-1",
			UserID:  "user-1",
			Rating:  5,
			Comment: "  Lovely braids and a friendly team  ",
		}

		f.salons.On("GetByID", mock.Anything, "salon-1").Return(&entities.Salon{ID: "salon-1"}, nil)
		f.reviews.On("ExistsForUser", mock.Anything, "salon-1", "user-1").Return(false, nil)
		f.reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Review) bool {
			return r.ID != "" && !r.CreatedAt.IsZero() && r.Comment == "Lovely braids and a friendly team"
		})).Return(nil)
		f.reviews.On("ListBySalon", mock.Anything, "salon-1", mock.Anything).
			Return(reviewsWithRatings("salon-1", 3, 4, 5), nil)
		f.salons.On("UpdateRating", mock.Anything, "salon-1", 4.0, 3).Return(nil)

		result, err := f.service.Submit(context.Background(), review)

		require.NoError(t, err)
		assert.Equal(t, review, result.Review)
		assert.Equal(t, 4.0, result.Summary.Average)
		assert.Equal(t, 3, result.Summary.Count)
		f.reviews.AssertExpectations(t)
		f.salons.AssertExpectations(t)

		var types []entities.SalonEventType
		for _, e := range f.bus.Published() {
			types = append(types, e.EventType)
		}
		assert.Equal(t, []entities.SalonEventType{entities.SalonEventTypeRatingUpdated, entities.SalonEventTypeReviewAdded}, types)
	})

	t.Run("second review by the same user conflicts", func(t *testing.T) {
		f := newReviewFixture()

		f.salons.On("GetByID", mock.Anything, "salon-1").Return(&entities.Salon{ID: "salon-1"}, nil)
		f.reviews.On("ExistsForUser", mock.Anything, "salon-1", "user-1").Return(true, nil)

		_, err := f.service.Submit(context.Background(), &entities.Review{
			SalonID: "salon-1",
			UserID:  "user-1",
			Rating:  3,
			Comment: "Came back and it was fine",
		})

		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))
		f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown salon is not found", func(t *testing.T) {
		f := newReviewFixture()

		f.salons.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("salon not found"))

		_, err := f.service.Submit(context.Background(), &entities.Review{
			SalonID: "missing",
			UserID:  "user-1",
			Rating:  3,
			Comment: "Came back and it was fine",
		})

		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	})
}

func TestReviewService_ListForSalon(t *testing.T) {
	f := newReviewFixture()
	reviews := []*entities.Review{
		{ID: "r2", SalonID: "salon-1", UserID: "user-2", Rating: 4},
		{ID: "r1", SalonID: "salon-1", UserID: "user-1", Rating: 5},
		{ID: "r0", SalonID: "salon-1", UserID: "user-2", Rating: 3},
	}

	f.reviews.On("ListBySalon", mock.Anything, "salon-1", repositories.Page{
		Limit:  services.MaxReviewPageSize,
		Offset: 0,
		Order:  repositories.ReviewOrderNewest,
	}).Return(reviews, nil)
	f.reviews.On("CountBySalon", mock.Anything, "salon-1").Return(3, nil)
	f.profiles.On("GetByUserIDs", mock.Anything, mock.MatchedBy(func(ids []string) bool {
		return len(ids) == 2
	})).Return([]*entities.Profile{{UserID: "user-1", Name: "Ada"}}, nil).Once()

	page, err := f.service.ListForSalon(context.Background(), "salon-1", 500, -5)

	require.NoError(t, err)
	assert.Equal(t, services.MaxReviewPageSize, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Reviews, 3)
	assert.Nil(t, page.Reviews[0].Author)
	require.NotNil(t, page.Reviews[1].Author)
	assert.Equal(t, "Ada", page.Reviews[1].Author.Name)
	f.profiles.AssertExpectations(t)
}

func TestReviewService_Delete(t *testing.T) {
	f := newReviewFixture()
	review := &entities.Review{ID: "r1", SalonID: "salon-1", UserID: "user-1", Rating: 1, Comment: "Never again, waited two hours"}

	f.reviews.On("GetByID", mock.Anything, "r1").Return(review, nil)
	f.reviews.On("Delete", mock.Anything, "r1").Return(nil)
	f.reviews.On("ListBySalon", mock.Anything, "salon-1", mock.Anything).Return(reviewsWithRatings("salon-1", 5), nil)
	f.salons.On("UpdateRating", mock.Anything, "salon-1", 5.0, 1).Return(nil)

	err := f.service.Delete(context.Background(), "admin-1", "r1")

	require.NoError(t, err)
	entries := f.history.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, entities.HistoryActionReviewDelete, entries[0].Action)
	assert.Equal(t, "r1", entries[0].EntityID)
	assert.Equal(t, "admin-1", entries[0].ActorID)

	var snapshot entities.Review
	require.NoError(t, json.Unmarshal(entries[0].Before, &snapshot))
	assert.Equal(t, review.Comment, snapshot.Comment)
	f.salons.AssertExpectations(t)
}

func TestReviewService_DeletePutsReviewBackWhenHistoryFails(t *testing.T) {
	f := newReviewFixture()
	f.history.err = errors.New("history store unavailable")
	review := &entities.Review{ID: "r1", SalonID: "salon-1", UserID: "user-1", Rating: 1, Comment: "Never again, waited two hours"}

	f.reviews.On("GetByID", mock.Anything, "r1").Return(review, nil)
	f.reviews.On("Delete", mock.Anything, "r1").Return(nil)
	f.reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Review) bool {
		return r.ID == "r1" && r.Comment == review.Comment
	})).Return(nil)

	err := f.service.Delete(context.Background(), "admin-1", "r1")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInternal))
	f.reviews.AssertExpectations(t)
	f.salons.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.bus.Published())
}

func TestReviewService_Restore(t *testing.T) {
	f := newReviewFixture()
	review := &entities.Review{ID: "r1", SalonID: "salon-1", UserID: "user-1", Rating: 1}

	f.reviews.On("Create", mock.Anything, review).Return(nil)
	f.reviews.On("ListBySalon", mock.Anything, "salon-1", mock.Anything).Return(reviewsWithRatings("salon-1", 1, 5), nil)
	f.salons.On("UpdateRating", mock.Anything, "salon-1", 3.0, 2).Return(nil)

	err := f.service.Restore(context.Background(), review)

	require.NoError(t, err)
	assert.Empty(t, f.history.recorded())
	f.reviews.AssertExpectations(t)
	f.salons.AssertExpectations(t)
}
