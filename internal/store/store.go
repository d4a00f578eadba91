// Package store manages the local SQLite store for session state and
// transform-call history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"

	"github.com/dmelo/outfit-studio/internal/models"
)

// Well-known keys in the kv table.
const (
	KeyAPIKey      = "api_key"
	KeyAuthToken   = "auth_token"
	KeyUserProfile = "user_profile"
)

// Store wraps the SQL database connection with application-specific methods.
type Store struct {
	*sql.DB
	path string
}

// Open creates a new store connection and initializes the schema.
func Open(path string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	s := &Store{
		DB:   sqlDB,
		path: path,
	}

	if err := s.configure(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to configure store: %w", err)
	}

	if err := s.createSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// configure sets up database pragmas.
func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := s.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (s *Store) createSchema() error {
	if err := s.createKVTable(); err != nil {
		return err
	}
	return s.createCallsTable()
}

func (s *Store) createKVTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := s.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

func (s *Store) createCallsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS transform_calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER DEFAULT 0
	)`

	if _, err := s.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create transform_calls table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_transform_calls_timestamp
		ON transform_calls(timestamp)`
	if _, err := s.ExecContext(context.Background(), index); err != nil {
		return fmt.Errorf("failed to create transform_calls index: %w", err)
	}
	return nil
}

// Get returns the value for a key, or "" with ok=false when absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Put writes or replaces the value for a key.
func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// PutPair writes two keys in one transaction. Used by sign-in so the auth
// token and the cached profile are never persisted half-written.
func (s *Store) PutPair(ctx context.Context, key1, value1, key2, value2 string) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	if _, err := tx.ExecContext(ctx, upsert, key1, value1); err != nil {
		return fmt.Errorf("failed to write %s: %w", key1, err)
	}
	if _, err := tx.ExecContext(ctx, upsert, key2, value2); err != nil {
		return fmt.Errorf("failed to write %s: %w", key2, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// DeletePair removes two keys in one transaction.
func (s *Store) DeletePair(ctx context.Context, key1, key2 string) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key IN (?, ?)", key1, key2); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", key1, key2, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// RecordCall appends one row to the transform-call history.
func (s *Store) RecordCall(ctx context.Context, rec models.CallRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.ExecContext(ctx,
		"INSERT INTO transform_calls (timestamp, kind, status, duration_ms) VALUES (?, ?, ?, ?)",
		ts.UTC().Format(time.RFC3339), string(rec.Kind), rec.Status, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	return nil
}

// RecentCalls returns the most recent history rows, newest first.
func (s *Store) RecentCalls(ctx context.Context, limit int) ([]models.CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.QueryContext(ctx,
		"SELECT timestamp, kind, status, duration_ms FROM transform_calls ORDER BY timestamp DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.CallRecord
	for rows.Next() {
		var (
			ts         string
			kind       string
			status     string
			durationMS int64
		)
		if err := rows.Scan(&ts, &kind, &status, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan call row: %w", err)
		}

		rec := models.CallRecord{
			Kind:     models.TransformKind(kind),
			Status:   status,
			Duration: time.Duration(durationMS) * time.Millisecond,
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = parsed
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
