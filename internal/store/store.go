// Package store provides a SQLite-backed history of question/answer
// exchanges. Each indexed root directory has its own history thread, so
// asking about two different codebases never mixes their records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Exchange is one answered question, with the sources the answer was
// grounded in.
type Exchange struct {
	// Question is the user's question.
	Question string
	// Answer is the full assembled answer text.
	Answer string
	// Sources lists the absolute source paths the answer was grounded in.
	Sources []string
	// CreatedAt is when the exchange was persisted.
	CreatedAt time.Time
}

// HistoryStore persists and retrieves answered questions keyed by root
// directory. Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Append persists one exchange for the given root.
	Append(ctx context.Context, root string, ex Exchange) error
	// Recent returns the most recent n exchanges for the root, ordered
	// oldest-first. If fewer than n exist, all are returned.
	Recent(ctx context.Context, root string, n int) ([]Exchange, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a HistoryStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the history database.
// It resolves to ~/.talkcode/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".talkcode")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS exchanges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    root        TEXT    NOT NULL,
    question    TEXT    NOT NULL,
    answer      TEXT    NOT NULL,
    sources     TEXT    NOT NULL,  -- JSON array of absolute paths
    created_at  INTEGER NOT NULL   -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_exchanges_root_created
    ON exchanges (root, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists one exchange for the given root.
func (s *SQLiteStore) Append(ctx context.Context, root string, ex Exchange) error {
	sources, err := json.Marshal(ex.Sources)
	if err != nil {
		return fmt.Errorf("store: marshal sources: %w", err)
	}

	const q = `INSERT INTO exchanges (root, question, answer, sources, created_at) VALUES (?, ?, ?, ?, ?)`
	created := ex.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, q, root, ex.Question, ex.Answer, string(sources), created.Unix()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns the most recent n exchanges for the root, ordered
// oldest-first. Uses a subquery to select the tail then re-order for display.
func (s *SQLiteStore) Recent(ctx context.Context, root string, n int) ([]Exchange, error) {
	const q = `
SELECT question, answer, sources, created_at FROM (
    SELECT id, question, answer, sources, created_at
    FROM   exchanges
    WHERE  root = ?
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, root, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var ex Exchange
		var sources string
		var ts int64
		if err := rows.Scan(&ex.Question, &ex.Answer, &sources, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &ex.Sources); err != nil {
			return nil, fmt.Errorf("store: unmarshal sources: %w", err)
		}
		ex.CreatedAt = time.Unix(ts, 0)
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return exchanges, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
