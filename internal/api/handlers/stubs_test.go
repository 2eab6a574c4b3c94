package handlers_test

import (
	"context"
	"net/http/httptest"
	"sync"

	"github.com/zatekoja/salonbooking/backend/internal/api/middleware"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

type stubSalonService struct {
	salons    map[string]*entities.Salon
	lastQuery services.SalonQuery
	searchErr error
}

func (s *stubSalonService) Get(ctx context.Context, id string) (*entities.Salon, error) {
	if salon, ok := s.salons[id]; ok {
		return salon, nil
	}
	return nil, notFound("salon not found")
}

func (s *stubSalonService) Search(ctx context.Context, q services.SalonQuery) (*services.SearchResult, error) {
	s.lastQuery = q
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	listings := []*entities.SalonListing{}
	for _, salon := range s.salons {
		listings = append(listings, &entities.SalonListing{Salon: salon})
	}
	sortBy := q.Sort
	if sortBy == "" {
		sortBy = services.SortByRating
	}
	return &services.SearchResult{Salons: listings, Total: len(listings), Limit: q.Limit, Offset: q.Offset, Sort: sortBy}, nil
}

type stubRatings struct {
	summary *entities.RatingSummary
}

func (s *stubRatings) SummaryForSalon(ctx context.Context, salonID string) (*entities.RatingSummary, error) {
	return s.summary, nil
}

type stubReviewService struct {
	submitted []*entities.Review
	submitErr error
	deleted   []string
	deleteBy  string
	listSalon string
	listLimit int
	listFrom  int
}

func (s *stubReviewService) Submit(ctx context.Context, review *entities.Review) (*services.SubmitResult, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	review.ID = "review-1"
	s.submitted = append(s.submitted, review)
	return &services.SubmitResult{Review: review, Summary: &entities.RatingSummary{Average: float64(review.Rating), Count: 1}}, nil
}

func (s *stubReviewService) ListForSalon(ctx context.Context, salonID string, limit, offset int) (*services.ReviewPage, error) {
	s.listSalon, s.listLimit, s.listFrom = salonID, limit, offset
	return &services.ReviewPage{Reviews: []*entities.Review{}, Limit: limit, Offset: offset}, nil
}

func (s *stubReviewService) Delete(ctx context.Context, actorID, reviewID string) error {
	s.deleteBy = actorID
	s.deleted = append(s.deleted, reviewID)
	return nil
}

type stubGeocoder struct {
	addresses map[string]*providers.GeocodedAddress
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	if addr, ok := g.addresses[address]; ok {
		return addr, nil
	}
	return nil, notFound("no results for address")
}

func (g *stubGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	return &providers.GeocodedAddress{City: "Lagos", Coordinates: providers.Coordinates{Latitude: lat, Longitude: lon}}, nil
}

type stubHistory struct {
	filter      repositories.HistoryFilter
	rollbackErr error
	entry       *entities.HistoryEntry
}

func (s *stubHistory) List(ctx context.Context, filter repositories.HistoryFilter) ([]*entities.HistoryEntry, error) {
	s.filter = filter
	if s.entry == nil {
		return []*entities.HistoryEntry{}, nil
	}
	return []*entities.HistoryEntry{s.entry}, nil
}

func (s *stubHistory) Rollback(ctx context.Context, actorID, entryID string) (*entities.HistoryEntry, error) {
	if s.rollbackErr != nil {
		return nil, s.rollbackErr
	}
	return &entities.HistoryEntry{ID: entryID, RolledBackBy: actorID}, nil
}

func (s *stubHistory) Undo(ctx context.Context, actorID string) (*entities.HistoryEntry, error) {
	if s.entry == nil {
		return nil, notFound("nothing to undo")
	}
	return s.entry, nil
}

type stubRecalculator struct {
	single string
}

func (s *stubRecalculator) RecalculateSalonRating(ctx context.Context, salonID string) (*entities.RatingSummary, error) {
	s.single = salonID
	return &entities.RatingSummary{SalonID: salonID, Average: 4.5, Count: 2}, nil
}

func (s *stubRecalculator) RecalculateAll(ctx context.Context) (*services.RecalcReport, error) {
	return &services.RecalcReport{Total: 3, Updated: 3}, nil
}

type stubSalonAdmin struct {
	created []services.SalonInput
	actor   string
}

func (s *stubSalonAdmin) Create(ctx context.Context, actorID string, input services.SalonInput) (*entities.Salon, error) {
	s.actor = actorID
	s.created = append(s.created, input)
	return &entities.Salon{ID: "salon-new", Name: input.Name, PriceLevel: input.PriceLevel}, nil
}

func (s *stubSalonAdmin) Update(ctx context.Context, actorID, id string, input services.SalonInput) (*entities.Salon, error) {
	s.actor = actorID
	return &entities.Salon{ID: id, Name: input.Name}, nil
}

func (s *stubSalonAdmin) Delete(ctx context.Context, actorID, id string) error {
	s.actor = actorID
	return nil
}

// syncRecorder guards a ResponseRecorder shared with a streaming handler
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.WriteHeader(code)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) BodyString() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.SalonEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{subscribers: make(map[string][]chan *entities.SalonEvent)}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.SalonEvent) error {
	m.mu.Lock()
	channels := append([]chan *entities.SalonEvent(nil), m.subscribers[channel]...)
	m.mu.Unlock()
	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SalonEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.SalonEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	return nil
}

func (m *MockEventBus) SubscriberCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers[channel])
}

func withIdentity(ctx context.Context, userID, role string) context.Context {
	return middleware.WithIdentity(ctx, &middleware.Identity{UserID: userID, Role: role})
}

func notFound(message string) error {
	return apperrors.NewNotFoundError(message)
}
