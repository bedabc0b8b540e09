package estsqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// PendingQueue tracks ids whose last local mutation has not been confirmed
// against the remote store. Entries are coalesced to one row per id, so
// repeated local edits before a sync pass produce a single upload.
type PendingQueue struct {
	db *sql.DB
}

// Enqueue adds an id to the queue. Idempotent.
func (q *PendingQueue) Enqueue(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO _estsync_pending (id) VALUES (?)
	`, id); err != nil {
		return fmt.Errorf("enqueue %s: %w", id, err)
	}
	return nil
}

// Dequeue removes an id after a confirmed remote write.
func (q *PendingQueue) Dequeue(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM _estsync_pending WHERE id = ?`, id); err != nil {
		return fmt.Errorf("dequeue %s: %w", id, err)
	}
	return nil
}

// DrainTargets returns the current queue contents, oldest first.
func (q *PendingQueue) DrainTargets(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id FROM _estsync_pending ORDER BY queued_at
	`)
	if err != nil {
		return nil, fmt.Errorf("drain pending queue: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending queue: %w", err)
	}
	return ids, nil
}
