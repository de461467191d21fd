package saga

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrTrackerClosed is returned after Close.
var ErrTrackerClosed = errors.New("processed event tracker is closed")

// SQLiteTracker is a ProcessedEventStore persisted to SQLite, so handler
// idempotency survives process restarts. It is suitable for single-process
// production use.
type SQLiteTracker struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ ProcessedEventStore = (*SQLiteTracker)(nil)

// NewSQLiteTracker opens (or creates) the tracker database at path.
// Use ":memory:" for testing.
func NewSQLiteTracker(path string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_events (
			handler TEXT NOT NULL,
			event_id TEXT NOT NULL,
			processed_at TEXT NOT NULL,
			PRIMARY KEY (handler, event_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// IsProcessed implements ProcessedEventStore.
func (t *SQLiteTracker) IsProcessed(ctx context.Context, handler string, eventID uuid.UUID) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return false, ErrTrackerClosed
	}

	var one int
	err := t.db.QueryRowContext(ctx, `
		SELECT 1 FROM processed_events
		WHERE handler = ? AND event_id = ?
	`, handler, eventID.String()).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query processed event: %w", err)
	}
	return true, nil
}

// MarkProcessed implements ProcessedEventStore.
func (t *SQLiteTracker) MarkProcessed(ctx context.Context, handler string, eventID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTrackerClosed
	}

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO processed_events (handler, event_id, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(handler, event_id) DO NOTHING
	`, handler, eventID.String(), time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (t *SQLiteTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}
