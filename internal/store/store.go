// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"flavorchart/internal/flavor"
	"flavorchart/internal/logger"
)

// The board persists three independent entries. Corrupt or missing values
// must default silently — startup never fails on bad state.
const (
	KeySelectedNames = "selected_names"
	KeyManualItems   = "manual_items"
	KeyUIState       = "ui_state"
)

const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
	queryTimeout    = 10 * time.Second
)

const schema = `
	CREATE TABLE IF NOT EXISTS board_state (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`

// Store is a small key-value persistence layer over sqlite.
type Store struct {
	db *sql.DB
}

// Open connects to the sqlite database at path, retrying a few times, and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := openWithRetry(path, 3)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create board_state table: %w", err)
	}

	return &Store{db: db}, nil
}

func openWithRetry(path string, maxRetries int) (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err := sql.Open("sqlite", path)
		if err == nil {
			db.SetMaxOpenConns(maxOpenConns)
			db.SetMaxIdleConns(maxIdleConns)
			db.SetConnMaxLifetime(connMaxLifetime)

			ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
			err = db.PingContext(ctx)
			cancel()
			if err == nil {
				enablePragmas(db)
				return db, nil
			}
			db.Close()
		}
		lastErr = err
		logger.LogWarn("Store open attempt %d failed: %v", attempt, err)
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return nil, fmt.Errorf("open store after %d attempts: %w", maxRetries, lastErr)
}

func enablePragmas(db *sql.DB) {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			logger.LogWarn("Failed to execute %s: %v", pragma, err)
		}
		cancel()
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for key, reporting whether it exists.
func (s *Store) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM board_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a value. Last write for a given key wins; ordering across keys
// is not guaranteed and does not need to be.
func (s *Store) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// LoadSelectedNames reads the persisted selection. Anything that fails to
// parse, or entries that are not strings, defaults away silently.
func (s *Store) LoadSelectedNames() []string {
	value, ok, err := s.Get(KeySelectedNames)
	if err != nil || !ok {
		if err != nil {
			logger.LogWarn("Could not read %s: %v", KeySelectedNames, err)
		}
		return nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		logger.LogWarn("Persisted %s is corrupt, starting empty: %v", KeySelectedNames, err)
		return nil
	}
	names := make([]string, 0, len(raw))
	for _, entry := range raw {
		if name, ok := entry.(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// LoadManualItems reads the persisted manual list through the normalizer.
// Records without a usable name are dropped.
func (s *Store) LoadManualItems(attrNames []string) []flavor.Item {
	value, ok, err := s.Get(KeyManualItems)
	if err != nil || !ok {
		if err != nil {
			logger.LogWarn("Could not read %s: %v", KeyManualItems, err)
		}
		return nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		logger.LogWarn("Persisted %s is corrupt, starting empty: %v", KeyManualItems, err)
		return nil
	}
	items := make([]flavor.Item, 0, len(raw))
	for _, entry := range raw {
		if item, ok := flavor.NormalizeManualItem(entry, attrNames); ok {
			items = append(items, item)
		}
	}
	return items
}

// LoadUIState reads the persisted UI state, overlaying it onto prev so a
// corrupt or partial value keeps the defaults.
func (s *Store) LoadUIState(prev flavor.UIState) flavor.UIState {
	value, ok, err := s.Get(KeyUIState)
	if err != nil || !ok {
		if err != nil {
			logger.LogWarn("Could not read %s: %v", KeyUIState, err)
		}
		return prev
	}

	var raw any
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		logger.LogWarn("Persisted %s is corrupt, keeping defaults: %v", KeyUIState, err)
		return prev
	}
	return flavor.NormalizeUIState(raw, prev)
}

// SaveSelectedNames persists the selection in sorted order.
func (s *Store) SaveSelectedNames(names []string) error {
	return s.setJSON(KeySelectedNames, names)
}

// SaveManualItems persists the manual list.
func (s *Store) SaveManualItems(items []flavor.Item) error {
	return s.setJSON(KeyManualItems, items)
}

// SaveUIState persists the UI state.
func (s *Store) SaveUIState(ui flavor.UIState) error {
	return s.setJSON(KeyUIState, ui)
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(key, string(data))
}
