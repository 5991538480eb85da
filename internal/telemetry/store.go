// Package telemetry persists cache-performance snapshots so runs of the
// engine can be compared over time.
package telemetry

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"kestrel/pkg/vm"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Snapshot is one recorded view of a manager's aggregate counters.
type Snapshot struct {
	ID         string
	TakenAt    time.Time
	Label      string
	Enabled    bool
	CacheCount int
	Stats      vm.CacheStats
}

// CacheRow is the per-cache detail belonging to a snapshot.
type CacheRow struct {
	SnapshotID string
	CacheID    string
	CacheType  string
	EntryCount int
	Stats      vm.CacheStats
}

// Store provides durable storage for snapshots.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens a SQLite database at the given path, applying
// pragmas and the schema. Safe to call repeatedly on the same path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent recording.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSnapshot persists the manager's current counters plus one row
// per registered cache, atomically, and returns the snapshot id.
func (s *Store) RecordSnapshot(ctx context.Context, m *vm.CacheManager, label string) (string, error) {
	id := uuid.NewString()
	takenAt := s.now().UTC()
	stats := m.GlobalStats()
	caches := m.GetAllCaches()

	ids := make([]string, 0, len(caches))
	for cid := range caches {
		ids = append(ids, cid)
	}
	sort.Strings(ids)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots
			(id, taken_at, label, enabled, cache_count,
			 lookups, hits, misses, invalidations, type_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, takenAt.Format(time.RFC3339Nano), label, m.IsEnabled(), len(caches),
		stats.Lookups, stats.Hits, stats.Misses, stats.Invalidations, stats.TypeErrors,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	for _, cid := range ids {
		c := caches[cid]
		cs := c.Stats()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_caches
				(snapshot_id, cache_id, cache_type, entry_count,
				 lookups, hits, misses, invalidations, type_errors)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, cid, c.Type().String(), c.EntryCount(),
			cs.Lookups, cs.Hits, cs.Misses, cs.Invalidations, cs.TypeErrors,
		)
		if err != nil {
			return "", fmt.Errorf("insert snapshot cache %s: %w", cid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

// Snapshots returns all recorded snapshots, newest first.
func (s *Store) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, taken_at, label, enabled, cache_count,
		       lookups, hits, misses, invalidations, type_errors
		FROM snapshots
		ORDER BY taken_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var takenAt string
		err := rows.Scan(&snap.ID, &takenAt, &snap.Label, &snap.Enabled, &snap.CacheCount,
			&snap.Stats.Lookups, &snap.Stats.Hits, &snap.Stats.Misses,
			&snap.Stats.Invalidations, &snap.Stats.TypeErrors)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot time %q: %w", takenAt, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// CacheRows returns the per-cache rows of one snapshot, ordered by
// cache id.
func (s *Store) CacheRows(ctx context.Context, snapshotID string) ([]CacheRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_id, cache_id, cache_type, entry_count,
		       lookups, hits, misses, invalidations, type_errors
		FROM snapshot_caches
		WHERE snapshot_id = ?
		ORDER BY cache_id`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot caches: %w", err)
	}
	defer rows.Close()

	var out []CacheRow
	for rows.Next() {
		var row CacheRow
		err := rows.Scan(&row.SnapshotID, &row.CacheID, &row.CacheType, &row.EntryCount,
			&row.Stats.Lookups, &row.Stats.Hits, &row.Stats.Misses,
			&row.Stats.Invalidations, &row.Stats.TypeErrors)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot cache: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
