// Package estimate defines the domain model for contractor estimates:
// priced material line items grouped into an estimate document. Monetary
// amounts and quantities use decimal arithmetic so that the totals
// invariant (total == sum of quantity * rate) holds exactly.
package estimate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the work category an estimate belongs to.
type Kind string

const (
	KindElectrical Kind = "electrical"
	KindPlumbing   Kind = "plumbing"
)

// SyncState tracks whether the last local mutation of an estimate has been
// confirmed against the remote store. It is local bookkeeping only and is
// never uploaded.
type SyncState string

const (
	StateSynced  SyncState = "synced"
	StatePending SyncState = "pending"
	StateFailed  SyncState = "failed"
)

// LineItem is one priced material row within an estimate. ExtendedAmount is
// always Quantity * UnitRate; it is recomputed by the owning estimate's
// mutators and never settable on its own.
type LineItem struct {
	ID             string          `json:"id" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	Category       string          `json:"category,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	Quantity       decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitRate       decimal.Decimal `json:"rate" validate:"gte=0"`
	ExtendedAmount decimal.Decimal `json:"total"`
}

// Estimate is the unit of persistence. OwnerID is empty for guest usage and
// set once the estimate is attributed to an authenticated owner. CreatedAt is
// assigned once and never mutated.
type Estimate struct {
	ID          string          `json:"id" validate:"required,uuid4"`
	OwnerID     string          `json:"ownerId,omitempty"`
	Kind        Kind            `json:"kind" validate:"required,oneof=electrical plumbing"`
	Title       string          `json:"title,omitempty"`
	ClientName  string          `json:"clientName,omitempty"`
	LineItems   []LineItem      `json:"lineItems" validate:"dive"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	Finalized   bool            `json:"finalized"`
	SyncState   SyncState       `json:"syncState,omitempty"`
}

// New creates a draft estimate with a fresh UUID v4 id.
func New(kind Kind) *Estimate {
	return &Estimate{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		SyncState: StatePending,
	}
}

// AddLineItem appends a priced line and recomputes totals. The returned
// pointer is valid until the next mutation of the estimate.
func (e *Estimate) AddLineItem(name, category, unit string, quantity, rate decimal.Decimal) *LineItem {
	e.LineItems = append(e.LineItems, LineItem{
		ID:       uuid.NewString(),
		Name:     name,
		Category: category,
		Unit:     unit,
		Quantity: quantity,
		UnitRate: rate,
	})
	e.recalc()
	return &e.LineItems[len(e.LineItems)-1]
}

// RemoveLineItem deletes the line with the given id and recomputes totals.
// It reports whether a line was removed.
func (e *Estimate) RemoveLineItem(id string) bool {
	for i := range e.LineItems {
		if e.LineItems[i].ID == id {
			e.LineItems = append(e.LineItems[:i], e.LineItems[i+1:]...)
			e.recalc()
			return true
		}
	}
	return false
}

// SetQuantity updates a line's quantity and recomputes totals.
func (e *Estimate) SetQuantity(itemID string, quantity decimal.Decimal) bool {
	for i := range e.LineItems {
		if e.LineItems[i].ID == itemID {
			e.LineItems[i].Quantity = quantity
			e.recalc()
			return true
		}
	}
	return false
}

// SetUnitRate updates a line's unit rate and recomputes totals.
func (e *Estimate) SetUnitRate(itemID string, rate decimal.Decimal) bool {
	for i := range e.LineItems {
		if e.LineItems[i].ID == itemID {
			e.LineItems[i].UnitRate = rate
			e.recalc()
			return true
		}
	}
	return false
}

// Finalize marks the estimate as completed by the summary step.
func (e *Estimate) Finalize() {
	e.Finalized = true
}

// Clone returns a deep copy, so callers can mutate drafts without affecting
// a stored snapshot.
func (e *Estimate) Clone() *Estimate {
	out := *e
	out.LineItems = make([]LineItem, len(e.LineItems))
	copy(out.LineItems, e.LineItems)
	return &out
}

// recalc restores the derived fields after any mutation: every line's
// extended amount and the estimate total.
func (e *Estimate) recalc() {
	total := decimal.Zero
	for i := range e.LineItems {
		li := &e.LineItems[i]
		li.ExtendedAmount = li.Quantity.Mul(li.UnitRate)
		total = total.Add(li.ExtendedAmount)
	}
	e.TotalAmount = total
}
