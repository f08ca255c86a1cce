// Package store provides SQLite persistence for last-known-good listings.
//
// Each successful fetch can be recorded as a snapshot keyed by endpoint and
// canonical filter query. Snapshots back the offline mode and the cache
// warmer; the listing controller never reads them directly.
package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
)

// ErrNoSnapshot is returned when no snapshot exists for a query.
var ErrNoSnapshot = errors.New("store: no snapshot")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Snapshot is the stored result of one successful fetch.
type Snapshot struct {
	Endpoint  string
	FilterKey string // canonical filter query, "" for no filters
	Records   []catalog.Record
	Count     int
	FetchedAt time.Time
}

// SnapshotInfo describes a snapshot without its records.
type SnapshotInfo struct {
	Endpoint  string
	FilterKey string
	Count     int
	FetchedAt time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	// Build connection string based on database type
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For in-memory databases, limit to 1 connection to avoid issues
	// with multiple connections getting different databases
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Enable WAL mode for file-based databases (not :memory:)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		endpoint TEXT NOT NULL,
		filter_key TEXT NOT NULL,
		records TEXT NOT NULL,
		count INTEGER NOT NULL,
		fetched_at DATETIME NOT NULL,
		PRIMARY KEY (endpoint, filter_key)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON snapshots(fetched_at DESC);
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

// SaveSnapshot stores records as the latest snapshot for (endpoint, p),
// replacing any earlier one.
// Thread-safe: acquires write lock.
func (s *Store) SaveSnapshot(endpoint string, p filter.Payload, records []catalog.Record, at time.Time) error {
	if records == nil {
		records = []catalog.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO snapshots (endpoint, filter_key, records, count, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(endpoint, filter_key) DO UPDATE SET
			records = excluded.records,
			count = excluded.count,
			fetched_at = excluded.fetched_at
	`, endpoint, p.Canonical(), string(data), len(records), at.UTC())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the stored snapshot for (endpoint, p), or ErrNoSnapshot.
// Thread-safe: acquires read lock.
func (s *Store) Snapshot(endpoint string, p filter.Payload) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Endpoint: endpoint, FilterKey: p.Canonical()}
	var data string
	err := s.db.QueryRow(`
		SELECT records, count, fetched_at
		FROM snapshots
		WHERE endpoint = ? AND filter_key = ?
	`, endpoint, snap.FilterKey).Scan(&data, &snap.Count, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	// UseNumber keeps ids the way the catalog client decodes them.
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&snap.Records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns every snapshot, newest first.
// Thread-safe: acquires read lock.
func (s *Store) ListSnapshots() ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT endpoint, filter_key, count, fetched_at
		FROM snapshots
		ORDER BY fetched_at DESC, endpoint, filter_key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Endpoint, &info.FilterKey, &info.Count, &info.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes snapshots fetched before cutoff, returning how many went.
// Thread-safe: acquires write lock.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM snapshots WHERE fetched_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return result.RowsAffected()
}

// SnapshotCount returns the number of stored snapshots.
// Thread-safe: acquires read lock.
func (s *Store) SnapshotCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count)
	return count, err
}
