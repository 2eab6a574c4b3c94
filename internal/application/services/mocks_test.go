package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
)

// Mocks

type MockSalonRepository struct {
	mock.Mock
}

func (m *MockSalonRepository) Create(ctx context.Context, salon *entities.Salon) error {
	args := m.Called(ctx, salon)
	return args.Error(0)
}

func (m *MockSalonRepository) GetByID(ctx context.Context, id string) (*entities.Salon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Salon), args.Error(1)
}

func (m *MockSalonRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Salon, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Salon), args.Error(1)
}

func (m *MockSalonRepository) Update(ctx context.Context, salon *entities.Salon) error {
	args := m.Called(ctx, salon)
	return args.Error(0)
}

func (m *MockSalonRepository) UpdateRating(ctx context.Context, salonID string, average float64, count int) error {
	args := m.Called(ctx, salonID, average, count)
	return args.Error(0)
}

func (m *MockSalonRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSalonRepository) Restore(ctx context.Context, salon *entities.Salon) error {
	args := m.Called(ctx, salon)
	return args.Error(0)
}

func (m *MockSalonRepository) List(ctx context.Context, filter repositories.SalonFilter) ([]*entities.Salon, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Salon), args.Error(1)
}

func (m *MockSalonRepository) Count(ctx context.Context, filter repositories.SalonFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

type MockSalonSearch struct {
	mock.Mock
}

func (m *MockSalonSearch) SearchIDs(ctx context.Context, filter repositories.SalonFilter) ([]string, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSalonSearch) Index(ctx context.Context, salon *entities.Salon) error {
	args := m.Called(ctx, salon)
	return args.Error(0)
}

func (m *MockSalonSearch) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entities.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id string) (*entities.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Review), args.Error(1)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) ExistsForUser(ctx context.Context, salonID, userID string) (bool, error) {
	args := m.Called(ctx, salonID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) ListBySalon(ctx context.Context, salonID string, page repositories.Page) ([]*entities.Review, error) {
	args := m.Called(ctx, salonID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Review), args.Error(1)
}

func (m *MockReviewRepository) CountBySalon(ctx context.Context, salonID string) (int, error) {
	args := m.Called(ctx, salonID)
	return args.Int(0), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID string) (*entities.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByUserIDs(ctx context.Context, userIDs []string) ([]*entities.Profile, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Profile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *entities.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *entities.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) Get(ctx context.Context, id string) (*entities.HistoryEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) List(ctx context.Context, filter repositories.HistoryFilter) ([]*entities.HistoryEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) MarkRolledBack(ctx context.Context, id, actorID string, at time.Time) error {
	args := m.Called(ctx, id, actorID, at)
	return args.Error(0)
}

func (m *MockHistoryRepository) PruneRolledBack(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, mail providers.Mail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

// fakeHistory collects recorded entries. A non-nil err makes every Record fail.
type fakeHistory struct {
	mu      sync.Mutex
	entries []*entities.HistoryEntry
	err     error
}

func (f *fakeHistory) Record(ctx context.Context, entry *entities.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistory) recorded() []*entities.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entities.HistoryEntry(nil), f.entries...)
}

// MockEventBus fans published events out to subscribers
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.SalonEvent
	published   map[string][]*entities.SalonEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.SalonEvent),
		published:   make(map[string][]*entities.SalonEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.SalonEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], event)
	for _, ch := range m.subscribers[channel] {
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
	for _, ch := range m.subscribers[channel] {
		close(ch)
	}
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	return nil
}

// Published returns the events sent to the global updates channel
func (m *MockEventBus) Published() []*entities.SalonEvent {
	return m.PublishedOn(providers.EventChannelSalonUpdates)
}

func (m *MockEventBus) PublishedOn(channel string) []*entities.SalonEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.SalonEvent(nil), m.published[channel]...)
}

func (m *MockEventBus) SubscriberCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers[channel])
}

// MockCacheProvider records pattern deletions
type MockCacheProvider struct {
	mu       sync.Mutex
	data     map[string][]byte
	patterns []string
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{data: make(map[string][]byte)}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) Patterns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.patterns...)
}

func floatPtr(v float64) *float64 {
	return &v
}
