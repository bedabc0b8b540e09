// Package estsqlite provides the SQLite-backed device persistence for the
// estimate sync core: the estimate store plus the tombstone ledger,
// pending-sync queue and per-row epoch metadata consumed by the reconciler.
//
// One database file per device. Sync metadata lives in namespaced
// _estsync_* tables next to the estimates collection.
package estsqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB owns the device database and hands out the typed collaborators the
// reconciler is wired with.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the device database at dsn and initializes the
// schema. Use ":memory:" for tests.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	d, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an existing connection and initializes the schema.
func New(db *sql.DB) (*DB, error) {
	if err := initialize(db); err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// Estimates returns the local estimate store.
func (d *DB) Estimates() *Store { return &Store{db: d.db} }

// Tombstones returns the tombstone ledger.
func (d *DB) Tombstones() *TombstoneLedger { return &TombstoneLedger{db: d.db} }

// Pending returns the pending-sync queue.
func (d *DB) Pending() *PendingQueue { return &PendingQueue{db: d.db} }

// Epochs returns the per-row epoch ledger.
func (d *DB) Epochs() *EpochLedger { return &EpochLedger{db: d.db} }

func initialize(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	tables := []string{
		// Estimate collection. The payload column holds the full JSON
		// document; sync_state is authoritative here, not in the payload.
		`CREATE TABLE IF NOT EXISTS estimates (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL DEFAULT '',
			kind        TEXT NOT NULL,
			sync_state  TEXT NOT NULL DEFAULT 'pending',
			created_at  TEXT NOT NULL,
			payload     TEXT NOT NULL
		)`,

		// Locally-deleted ids, kept until the remote delete is confirmed.
		`CREATE TABLE IF NOT EXISTS _estsync_tombstones (
			id          TEXT PRIMARY KEY,
			deleted_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		// Pending-sync queue, coalesced to one row per id.
		`CREATE TABLE IF NOT EXISTS _estsync_pending (
			id          TEXT PRIMARY KEY,
			queued_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		// Monotonic per-id epoch for locally-originated mutations. Remote
		// change notifications at or below this epoch are stale.
		`CREATE TABLE IF NOT EXISTS _estsync_row_meta (
			id          TEXT PRIMARY KEY,
			epoch       INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create sync table: %w", err)
		}
	}
	return nil
}
