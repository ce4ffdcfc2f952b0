// Package store provides the SQLite cache of fetched dataset documents.
//
// Only raw index and dataset documents are cached. Playback state is never
// persisted.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested cache entry does not exist.
var ErrNotFound = errors.New("not found in cache")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex // Protects all database operations
	now func() time.Time
}

// Entry describes one cached dataset document.
type Entry struct {
	DataType  string
	Name      string
	Size      int
	FetchedAt time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables if they don't exist.
// fetched_at is unix milliseconds so range comparisons stay numeric.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		data_type TEXT NOT NULL,
		name TEXT NOT NULL,
		body BLOB NOT NULL,
		fetched_at INTEGER NOT NULL,
		PRIMARY KEY (data_type, name)
	);

	CREATE TABLE IF NOT EXISTS indexes (
		data_type TEXT PRIMARY KEY,
		names TEXT NOT NULL,
		position INTEGER NOT NULL,
		fetched_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_datasets_fetched ON datasets(fetched_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// PutDataset stores (or replaces) a dataset document.
// Thread-safe: acquires write lock.
func (s *Store) PutDataset(dataType, name string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO datasets (data_type, name, body, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(data_type, name) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at
	`, dataType, name, body, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put dataset %s/%s: %w", dataType, name, err)
	}
	return nil
}

// GetDataset returns a cached document and the time it was fetched.
// Returns ErrNotFound if the document is not cached.
// Thread-safe: acquires read lock.
func (s *Store) GetDataset(dataType, name string) ([]byte, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body []byte
	var fetched int64
	err := s.db.QueryRow(
		"SELECT body, fetched_at FROM datasets WHERE data_type = ? AND name = ?",
		dataType, name,
	).Scan(&body, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get dataset %s/%s: %w", dataType, name, err)
	}
	return body, time.UnixMilli(fetched), nil
}

// DeleteDataset removes a cached document. Missing entries are not an error.
// Thread-safe: acquires write lock.
func (s *Store) DeleteDataset(dataType, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM datasets WHERE data_type = ? AND name = ?", dataType, name)
	return err
}

// ListDatasets returns every cached document, newest first.
// Thread-safe: acquires read lock.
func (s *Store) ListDatasets() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT data_type, name, length(body), fetched_at
		FROM datasets
		ORDER BY fetched_at DESC, data_type, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fetched int64
		if err := rows.Scan(&e.DataType, &e.Name, &e.Size, &fetched); err != nil {
			return nil, err
		}
		e.FetchedAt = time.UnixMilli(fetched)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Purge deletes dataset documents fetched before cutoff and returns the
// number removed. A zero cutoff removes everything, including the index.
// Thread-safe: acquires write lock.
func (s *Store) Purge(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result sql.Result
	var err error
	if cutoff.IsZero() {
		result, err = s.db.Exec("DELETE FROM datasets")
		if err == nil {
			_, err = s.db.Exec("DELETE FROM indexes")
		}
	} else {
		result, err = s.db.Exec("DELETE FROM datasets WHERE fetched_at < ?", cutoff.UnixMilli())
	}
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PutIndex replaces the cached index document.
// Thread-safe: acquires write lock.
func (s *Store) PutIndex(idx map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM indexes"); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	now := s.now().UnixMilli()
	pos := 0
	for dataType, names := range idx {
		encoded, err := json.Marshal(names)
		if err != nil {
			return fmt.Errorf("encode index names: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO indexes (data_type, names, position, fetched_at) VALUES (?, ?, ?, ?)",
			dataType, string(encoded), pos, now,
		); err != nil {
			return fmt.Errorf("put index %s: %w", dataType, err)
		}
		pos++
	}
	return tx.Commit()
}

// GetIndex returns the cached index and the time it was stored.
// Returns ErrNotFound if no index has been cached.
// Thread-safe: acquires read lock.
func (s *Store) GetIndex() (map[string][]string, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT data_type, names, fetched_at FROM indexes ORDER BY position")
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	idx := make(map[string][]string)
	var fetched int64
	for rows.Next() {
		var dataType, encoded string
		if err := rows.Scan(&dataType, &encoded, &fetched); err != nil {
			return nil, time.Time{}, err
		}
		var names []string
		if err := json.Unmarshal([]byte(encoded), &names); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode index %s: %w", dataType, err)
		}
		if names == nil {
			names = []string{}
		}
		idx[dataType] = names
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	if len(idx) == 0 {
		return nil, time.Time{}, ErrNotFound
	}
	return idx, time.UnixMilli(fetched), nil
}
