// Package estsync reconciles the device-local estimate collection with the
// remote store. The reconciler owns four collaborators — local store,
// tombstone ledger, pending-sync queue and remote gateway — and is the only
// component that mutates them.
package estsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klmalviya77/site-work-simplifier-pro/estimate"
)

// Record is the wire shape of an estimate in the remote store. Line items
// travel as an opaque embedded JSON array in a single field, not as
// normalized rows. Epoch tags the originating device's mutation counter so
// change notifications can be deduplicated against local state.
type Record struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title,omitempty"`
	ClientName  string          `json:"client_name,omitempty"`
	Kind        string          `json:"kind"`
	TotalAmount decimal.Decimal `json:"total"`
	LineItems   json.RawMessage `json:"items"`
	Date        time.Time       `json:"date"`
	Epoch       int64           `json:"epoch,omitempty"`
}

// Gateway abstracts the remote persistence operations. Upsert and Delete
// must be idempotent: repeating a call with the same id is safe.
// ListByOwner must apply a bounded timeout and surface a distinguishable
// failure rather than hanging.
type Gateway interface {
	Upsert(ctx context.Context, rec *Record, ownerID string) error
	Delete(ctx context.Context, id, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
}

// RecordFromEstimate converts a local estimate to its wire shape. Local
// bookkeeping (sync state) is stripped.
func RecordFromEstimate(e *estimate.Estimate, ownerID string) (*Record, error) {
	items, err := json.Marshal(e.LineItems)
	if err != nil {
		return nil, fmt.Errorf("encode line items for %s: %w", e.ID, err)
	}
	return &Record{
		ID:          e.ID,
		OwnerID:     ownerID,
		Title:       e.Title,
		ClientName:  e.ClientName,
		Kind:        string(e.Kind),
		TotalAmount: e.TotalAmount,
		LineItems:   items,
		Date:        e.CreatedAt,
	}, nil
}

// Estimate converts a remote record back to the local shape. Remotely-held
// estimates are by definition synced and finalized.
func (r *Record) Estimate() (*estimate.Estimate, error) {
	var items []estimate.LineItem
	if len(r.LineItems) > 0 {
		if err := json.Unmarshal(r.LineItems, &items); err != nil {
			return nil, fmt.Errorf("decode line items for %s: %w", r.ID, err)
		}
	}
	return &estimate.Estimate{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Kind:        estimate.Kind(r.Kind),
		Title:       r.Title,
		ClientName:  r.ClientName,
		LineItems:   items,
		TotalAmount: r.TotalAmount,
		CreatedAt:   r.Date,
		Finalized:   true,
		SyncState:   estimate.StateSynced,
	}, nil
}
