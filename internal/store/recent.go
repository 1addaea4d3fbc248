// Package store keeps savesmith's local state in SQLite: the history of
// recently opened save files.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"savesmith/internal/logging"

	_ "modernc.org/sqlite"
)

// RecentSave is one entry in the recently opened history.
type RecentSave struct {
	Path          string
	Name          string
	CharacterName string
	OpenedAt      time.Time
	OpenCount     int
}

// RecentStore records which saves were opened and when.
type RecentStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
	now    func() time.Time
}

// OpenRecentStore opens (creating if needed) the database at path.
func OpenRecentStore(path string) (*RecentStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenRecentStore")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Error(logging.CategoryStore, "Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &RecentStore{db: db, dbPath: path, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Recent saves store ready at %s (schema v%d)", path, GetSchemaVersion(db))
	return s, nil
}

func (s *RecentStore) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS recent_saves (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		opened_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recent_saves_opened ON recent_saves(opened_at DESC);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create recent_saves table: %w", err)
	}
	return RunMigrations(s.db)
}

// Record notes that the save at path was opened. Reopening a save moves it
// to the top and bumps its open count.
func (s *RecentStore) Record(ctx context.Context, r RecentSave) error {
	if r.Path == "" {
		return errors.New("recent save path is required")
	}
	if r.Name == "" {
		r.Name = filepath.Base(r.Path)
	}
	if r.OpenedAt.IsZero() {
		r.OpenedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recent_saves (path, name, character_name, opened_at, open_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			character_name = CASE WHEN excluded.character_name != '' THEN excluded.character_name ELSE recent_saves.character_name END,
			opened_at = excluded.opened_at,
			open_count = recent_saves.open_count + 1`,
		r.Path, r.Name, r.CharacterName, r.OpenedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", r.Path, err)
	}
	logging.StoreDebug("Recorded recent save %s", r.Path)
	return nil
}

// List returns up to limit saves, most recently opened first. A
// non-positive limit returns all of them.
func (s *RecentStore) List(ctx context.Context, limit int) ([]RecentSave, error) {
	if limit <= 0 {
		limit = -1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, name, character_name, opened_at, open_count
		FROM recent_saves
		ORDER BY opened_at DESC, path
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent saves: %w", err)
	}
	defer rows.Close()

	var out []RecentSave
	for rows.Next() {
		var r RecentSave
		var opened int64
		if err := rows.Scan(&r.Path, &r.Name, &r.CharacterName, &opened, &r.OpenCount); err != nil {
			return nil, fmt.Errorf("failed to scan recent save: %w", err)
		}
		r.OpenedAt = time.Unix(0, opened)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Remove forgets path. Removing an unknown path is not an error.
func (s *RecentStore) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM recent_saves WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Prune keeps only the keep most recent entries.
func (s *RecentStore) Prune(ctx context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM recent_saves WHERE path NOT IN (
			SELECT path FROM recent_saves ORDER BY opened_at DESC, path LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune recent saves: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("Pruned %d recent saves", n)
	}
	return n, nil
}

// Path returns the database file path.
func (s *RecentStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *RecentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
