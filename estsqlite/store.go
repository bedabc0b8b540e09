package estsqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klmalviya77/site-work-simplifier-pro/estimate"
)

// Store is the durable local estimate collection. All writes hit disk
// immediately; there is no debouncing at this record volume.
type Store struct {
	db *sql.DB
}

// Upsert inserts or replaces an estimate by id. Calling it twice with the
// same value is a no-op difference-wise.
func (s *Store) Upsert(ctx context.Context, e *estimate.Estimate) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal estimate %s: %w", e.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO estimates (id, owner_id, kind, sync_state, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id   = excluded.owner_id,
			kind       = excluded.kind,
			sync_state = excluded.sync_state,
			payload    = excluded.payload
	`, e.ID, e.OwnerID, string(e.Kind), string(e.SyncState), e.CreatedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("upsert estimate %s: %w", e.ID, err)
	}
	return nil
}

// Get loads one estimate by id. A missing id returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*estimate.Estimate, error) {
	var payload, state string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, sync_state FROM estimates WHERE id = ?
	`, id).Scan(&payload, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get estimate %s: %w", id, err)
	}
	return decodeEstimate(payload, state)
}

// List returns all locally known estimates in unspecified order.
func (s *Store) List(ctx context.Context) ([]*estimate.Estimate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload, sync_state FROM estimates`)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	defer rows.Close()

	var out []*estimate.Estimate
	for rows.Next() {
		var payload, state string
		if err := rows.Scan(&payload, &state); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		e, err := decodeEstimate(payload, state)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimates: %w", err)
	}
	return out, nil
}

// Remove deletes an estimate by id. Removing a non-existent id is not an
// error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove estimate %s: %w", id, err)
	}
	return nil
}

// SetSyncState updates the sync bookkeeping column for one estimate.
func (s *Store) SetSyncState(ctx context.Context, id string, state estimate.SyncState) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE estimates SET sync_state = ? WHERE id = ?
	`, string(state), id); err != nil {
		return fmt.Errorf("set sync state for %s: %w", id, err)
	}
	return nil
}

func decodeEstimate(payload, state string) (*estimate.Estimate, error) {
	var e estimate.Estimate
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("decode estimate payload: %w", err)
	}
	// The column wins over whatever was serialized.
	e.SyncState = estimate.SyncState(state)
	return &e, nil
}
