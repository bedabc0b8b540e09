package estsqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// TombstoneLedger records locally-deleted estimate ids so a stale remote
// fetch cannot resurrect them. An entry is cleared only after the remote
// store confirms the corresponding delete.
type TombstoneLedger struct {
	db *sql.DB
}

// MarkDeleted adds an id to the ledger. Idempotent.
func (t *TombstoneLedger) MarkDeleted(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO _estsync_tombstones (id) VALUES (?)
	`, id); err != nil {
		return fmt.Errorf("mark deleted %s: %w", id, err)
	}
	return nil
}

// IsDeleted reports whether an id is tombstoned.
func (t *TombstoneLedger) IsDeleted(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := t.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM _estsync_tombstones WHERE id = ?)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("tombstone lookup %s: %w", id, err)
	}
	return exists, nil
}

// Clear removes an id from the ledger after a confirmed remote delete.
func (t *TombstoneLedger) Clear(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM _estsync_tombstones WHERE id = ?`, id); err != nil {
		return fmt.Errorf("clear tombstone %s: %w", id, err)
	}
	return nil
}
