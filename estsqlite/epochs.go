package estsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EpochLedger keeps a monotonic epoch per estimate id. Every
// locally-originated mutation bumps the epoch; remote change notifications
// carrying an epoch at or below the stored value are stale echoes of our own
// writes and must be ignored.
type EpochLedger struct {
	db *sql.DB
}

// Bump increments the epoch for id and returns the new value.
func (l *EpochLedger) Bump(ctx context.Context, id string) (int64, error) {
	var epoch int64
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO _estsync_row_meta (id, epoch) VALUES (?, 1)
		ON CONFLICT(id) DO UPDATE SET
			epoch      = epoch + 1,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		RETURNING epoch
	`, id).Scan(&epoch)
	if err != nil {
		return 0, fmt.Errorf("bump epoch for %s: %w", id, err)
	}
	return epoch, nil
}

// Epoch returns the stored epoch for id, or 0 if none was recorded.
func (l *EpochLedger) Epoch(ctx context.Context, id string) (int64, error) {
	var epoch int64
	err := l.db.QueryRowContext(ctx, `
		SELECT epoch FROM _estsync_row_meta WHERE id = ?
	`, id).Scan(&epoch)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("epoch lookup for %s: %w", id, err)
	}
	return epoch, nil
}

// Observe records an epoch seen from the remote store, keeping the maximum
// of the stored and observed values.
func (l *EpochLedger) Observe(ctx context.Context, id string, epoch int64) error {
	if _, err := l.db.ExecContext(ctx, `
		INSERT INTO _estsync_row_meta (id, epoch) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			epoch      = MAX(epoch, excluded.epoch),
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
	`, id, epoch); err != nil {
		return fmt.Errorf("observe epoch for %s: %w", id, err)
	}
	return nil
}
