package history

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

func newTestStore(t *testing.T, capacity int) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(MemoryPath, capacity)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func entry(id string, action entities.HistoryAction, entityID string, at time.Time) *entities.HistoryEntry {
	before, _ := json.Marshal(map[string]string{"id": entityID, "name": "before"})
	return &entities.HistoryEntry{
		ID:          id,
		Action:      action,
		EntityID:    entityID,
		Description: fmt.Sprintf("%s %s", action, entityID),
		Before:      before,
		ActorID:     "admin-1",
		CreatedAt:   at,
	}
}

func TestSQLiteStore_AppendAndGet(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entry("h-1", entities.HistoryActionSalonUpdate, "s-1", now)))

	got, err := store.Get(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, entities.HistoryActionSalonUpdate, got.Action)
	assert.Equal(t, "s-1", got.EntityID)
	assert.JSONEq(t, `{"id":"s-1","name":"before"}`, string(got.Before))
	assert.Nil(t, got.After)
	assert.False(t, got.RolledBack())
	assert.True(t, now.Equal(got.CreatedAt))
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := newTestStore(t, 10)

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestSQLiteStore_Append_RejectsUnknownAction(t *testing.T) {
	store := newTestStore(t, 10)

	err := store.Append(context.Background(), entry("h-1", "salon.rename", "s-1", time.Now()))
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestSQLiteStore_TrimsToCapacity(t *testing.T) {
	store := newTestStore(t, 3)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, entry(fmt.Sprintf("h-%d", i), entities.HistoryActionSalonCreate, "s", base.Add(time.Duration(i)*time.Second))))
	}

	entries, err := store.List(ctx, repositories.HistoryFilter{IncludeRolledBack: true})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "h-5", entries[0].ID)
	assert.Equal(t, "h-3", entries[2].ID)

	_, err = store.Get(ctx, "h-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entry("h-1", entities.HistoryActionSalonUpdate, "s-1", now)))
	require.NoError(t, store.Append(ctx, entry("h-2", entities.HistoryActionReviewDelete, "r-1", now)))
	require.NoError(t, store.Append(ctx, entry("h-3", entities.HistoryActionSalonUpdate, "s-2", now)))
	require.NoError(t, store.MarkRolledBack(ctx, "h-3", "admin-1", now))

	active, err := store.List(ctx, repositories.HistoryFilter{Action: entities.HistoryActionSalonUpdate})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "h-1", active[0].ID)

	all, err := store.List(ctx, repositories.HistoryFilter{Action: entities.HistoryActionSalonUpdate, IncludeRolledBack: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byEntity, err := store.List(ctx, repositories.HistoryFilter{EntityID: "r-1"})
	require.NoError(t, err)
	require.Len(t, byEntity, 1)
	assert.Equal(t, entities.HistoryActionReviewDelete, byEntity[0].Action)
}

func TestSQLiteStore_MarkRolledBackTwiceConflicts(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entry("h-1", entities.HistoryActionSalonDelete, "s-1", now)))
	require.NoError(t, store.MarkRolledBack(ctx, "h-1", "admin-2", now))

	got, err := store.Get(ctx, "h-1")
	require.NoError(t, err)
	require.True(t, got.RolledBack())
	assert.Equal(t, "admin-2", got.RolledBackBy)

	err = store.MarkRolledBack(ctx, "h-1", "admin-2", now)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))

	err = store.MarkRolledBack(ctx, "nope", "admin-2", now)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestSQLiteStore_PruneRolledBack(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour).UTC()
	recent := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entry("h-old", entities.HistoryActionSalonCreate, "s-1", old)))
	require.NoError(t, store.Append(ctx, entry("h-old-active", entities.HistoryActionSalonCreate, "s-2", old)))
	require.NoError(t, store.Append(ctx, entry("h-new", entities.HistoryActionSalonCreate, "s-3", recent)))
	require.NoError(t, store.MarkRolledBack(ctx, "h-old", "admin", recent))
	require.NoError(t, store.MarkRolledBack(ctx, "h-new", "admin", recent))

	n, err := store.PruneRolledBack(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, "h-old-active")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "h-new")
	assert.NoError(t, err)
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, 5)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, entry("h-1", entities.HistoryActionSalonCreate, "s-1", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, 5)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.EntityID)
}
