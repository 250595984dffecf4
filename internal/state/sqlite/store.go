// Package sqlite is the durable Store implementation backing the pipeline's
// persisted client state.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/styleglow/analyzer/internal/state"
)

// Store is a SQLite implementation of state.Store.
type Store struct {
	db *sql.DB
}

var _ state.Store = (*Store)(nil)

// New opens (or creates) the state database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS histories (
			key TEXT PRIMARY KEY,
			timestamps TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	return nil
}

func (s *Store) History(ctx context.Context, key string) ([]int64, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT timestamps FROM histories WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return []int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s: %w", key, err)
	}

	var timestamps []int64
	if err := json.Unmarshal([]byte(raw), &timestamps); err != nil {
		return nil, fmt.Errorf("failed to decode history %s: %w", key, err)
	}
	return timestamps, nil
}

func (s *Store) SetHistory(ctx context.Context, key string, timestamps []int64) error {
	if timestamps == nil {
		timestamps = []int64{}
	}
	raw, err := json.Marshal(timestamps)
	if err != nil {
		return fmt.Errorf("failed to encode history %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO histories (key, timestamps, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET timestamps = excluded.timestamps, updated_at = CURRENT_TIMESTAMP`,
		key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write history %s: %w", key, err)
	}
	return nil
}

func (s *Store) Increment(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO counters (key, value, updated_at) VALUES (?, 1, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = value + 1, updated_at = CURRENT_TIMESTAMP
		 RETURNING value`,
		key).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM counters WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
