package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "modernc.org/sqlite"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

const (
	historyTable   = "history"
	defaultListMax = 50
)

// MemoryPath opens a private in-memory store
const MemoryPath = ":memory:"

// SQLiteStore keeps the admin rollback log in a local SQLite file. The log
// is bounded: appending beyond capacity drops the oldest entries.
type SQLiteStore struct {
	db       *sql.DB
	gq       *goqu.Database
	capacity int
	mu       sync.Mutex
}

var _ repositories.HistoryRepository = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the history database at path
func NewSQLiteStore(path string, capacity int) (*SQLiteStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("history capacity must be positive, got %d", capacity)
	}

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One connection: SQLite has a single writer and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:       db,
		gq:       goqu.New("sqlite3", db),
		capacity: capacity,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		action TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		before_json TEXT,
		after_json TEXT,
		actor_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		rolled_back_at INTEGER,
		rolled_back_by TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_history_entity ON history(entity_id);
	CREATE INDEX IF NOT EXISTS idx_history_action ON history(action);
	`)
	return err
}

// Append stores a new entry and trims the log to capacity
func (s *SQLiteStore) Append(ctx context.Context, entry *entities.HistoryEntry) error {
	if entry == nil || entry.ID == "" {
		return apperrors.NewValidationError("history entry id is required")
	}
	if !entry.Action.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown history action %q", entry.Action))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin history transaction", err)
	}
	defer tx.Rollback()

	query, args, err := s.gq.Insert(historyTable).Rows(goqu.Record{
		"id":          entry.ID,
		"action":      string(entry.Action),
		"entity_id":   entry.EntityID,
		"description": entry.Description,
		"before_json": nullJSON(entry.Before),
		"after_json":  nullJSON(entry.After),
		"actor_id":    entry.ActorID,
		"created_at":  entry.CreatedAt.UnixNano(),
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build history insert", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append history entry", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`,
		s.capacity,
	); err != nil {
		return apperrors.NewInternalError("failed to trim history", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit history entry", err)
	}
	return nil
}

// Get retrieves an entry by ID
func (s *SQLiteStore) Get(ctx context.Context, id string) (*entities.HistoryEntry, error) {
	query, args, err := s.selectEntries().Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build history query", err)
	}

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("history entry %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get history entry", err)
	}
	return entry, nil
}

// List returns entries newest first
func (s *SQLiteStore) List(ctx context.Context, filter repositories.HistoryFilter) ([]*entities.HistoryEntry, error) {
	ds := s.selectEntries()
	if filter.Action != "" {
		ds = ds.Where(goqu.C("action").Eq(string(filter.Action)))
	}
	if filter.EntityID != "" {
		ds = ds.Where(goqu.C("entity_id").Eq(filter.EntityID))
	}
	if !filter.IncludeRolledBack {
		ds = ds.Where(goqu.C("rolled_back_at").IsNull())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListMax
	}
	ds = ds.Order(goqu.C("seq").Desc()).Limit(uint(limit))

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build history list query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list history", err)
	}
	defer rows.Close()

	entries := []*entities.HistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan history entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating history", err)
	}
	return entries, nil
}

// MarkRolledBack records that an entry has been undone. Marking twice is a
// conflict.
func (s *SQLiteStore) MarkRolledBack(ctx context.Context, id, actorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.gq.Update(historyTable).
		Set(goqu.Record{"rolled_back_at": at.UnixNano(), "rolled_back_by": actorID}).
		Where(goqu.C("id").Eq(id), goqu.C("rolled_back_at").IsNull()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build history update", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to mark history entry", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return apperrors.NewConflictError(fmt.Sprintf("history entry %s was already rolled back", id))
	}
	return nil
}

// PruneRolledBack removes rolled-back entries created before the cutoff
func (s *SQLiteStore) PruneRolledBack(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.gq.Delete(historyTable).
		Where(goqu.C("rolled_back_at").IsNotNull(), goqu.C("created_at").Lt(before.UnixNano())).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build history prune", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to prune history", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) selectEntries() *goqu.SelectDataset {
	return s.gq.From(historyTable).Select(
		"id", "action", "entity_id", "description", "before_json", "after_json",
		"actor_id", "created_at", "rolled_back_at", "rolled_back_by",
	)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*entities.HistoryEntry, error) {
	var (
		entry         entities.HistoryEntry
		action        string
		before, after sql.NullString
		createdAt     int64
		rolledBackAt  sql.NullInt64
	)
	err := row.Scan(
		&entry.ID, &action, &entry.EntityID, &entry.Description, &before, &after,
		&entry.ActorID, &createdAt, &rolledBackAt, &entry.RolledBackBy,
	)
	if err != nil {
		return nil, err
	}

	entry.Action = entities.HistoryAction(action)
	entry.CreatedAt = time.Unix(0, createdAt).UTC()
	if before.Valid {
		entry.Before = []byte(before.String)
	}
	if after.Valid {
		entry.After = []byte(after.String)
	}
	if rolledBackAt.Valid {
		at := time.Unix(0, rolledBackAt.Int64).UTC()
		entry.RolledBackAt = &at
	}
	return &entry, nil
}

func nullJSON(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
