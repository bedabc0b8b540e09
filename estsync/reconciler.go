package estsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/klmalviya77/site-work-simplifier-pro/estimate"
)

// LocalStore is the durable device-local estimate collection.
// A missing id is reported as (nil, nil) from Get, not as an error.
type LocalStore interface {
	Upsert(ctx context.Context, e *estimate.Estimate) error
	Get(ctx context.Context, id string) (*estimate.Estimate, error)
	List(ctx context.Context) ([]*estimate.Estimate, error)
	Remove(ctx context.Context, id string) error
	SetSyncState(ctx context.Context, id string, state estimate.SyncState) error
}

// TombstoneLedger records locally-deleted ids until the remote delete is
// confirmed.
type TombstoneLedger interface {
	MarkDeleted(ctx context.Context, id string) error
	IsDeleted(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context, id string) error
}

// PendingQueue tracks ids awaiting remote confirmation.
type PendingQueue interface {
	Enqueue(ctx context.Context, id string) error
	Dequeue(ctx context.Context, id string) error
	DrainTargets(ctx context.Context) ([]string, error)
}

// EpochLedger keeps the monotonic per-id mutation epoch used to discard
// stale remote change notifications.
type EpochLedger interface {
	Bump(ctx context.Context, id string) (int64, error)
	Epoch(ctx context.Context, id string) (int64, error)
	Observe(ctx context.Context, id string, epoch int64) error
}

// Config holds tuning for the background sync loop.
type Config struct {
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// DefaultConfig returns the default sync loop tuning.
func DefaultConfig() *Config {
	return &Config{
		BackoffMin: 1 * time.Second,
		BackoffMax: 60 * time.Second,
	}
}

// Deps are the collaborators a Reconciler is constructed with. All but
// Logger are required.
type Deps struct {
	Store      LocalStore
	Tombstones TombstoneLedger
	Pending    PendingQueue
	Epochs     EpochLedger
	Gateway    Gateway
	Monitor    Monitor
	Logger     *slog.Logger
}

// Reconciler unifies local and remote state for the estimate collection.
// Construct one per process and inject it; it is the only component that
// mutates its collaborators.
type Reconciler struct {
	store      LocalStore
	tombstones TombstoneLedger
	pending    PendingQueue
	epochs     EpochLedger
	gateway    Gateway
	monitor    Monitor
	config     *Config
	logger     *slog.Logger

	// Serializes mutations so operations on the same id apply in the order
	// they were requested.
	writeMu sync.Mutex
}

// New creates a Reconciler. A nil config selects DefaultConfig.
func New(deps Deps, config *Config) (*Reconciler, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("deps.Store is required")
	case deps.Tombstones == nil:
		return nil, fmt.Errorf("deps.Tombstones is required")
	case deps.Pending == nil:
		return nil, fmt.Errorf("deps.Pending is required")
	case deps.Epochs == nil:
		return nil, fmt.Errorf("deps.Epochs is required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("deps.Gateway is required")
	case deps.Monitor == nil:
		return nil, fmt.Errorf("deps.Monitor is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:      deps.Store,
		tombstones: deps.Tombstones,
		pending:    deps.Pending,
		epochs:     deps.Epochs,
		gateway:    deps.Gateway,
		monitor:    deps.Monitor,
		config:     config,
		logger:     logger,
	}, nil
}

// Save writes the estimate through to the local store unconditionally, then
// opportunistically pushes it to the remote store when an owner is known and
// connectivity exists. The returned bool reports whether the remote write
// succeeded; a false return with nil error means the estimate is queued as
// pending. Local storage and validation failures return an error.
func (r *Reconciler) Save(ctx context.Context, e *estimate.Estimate, ownerID string) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	deleted, err := r.tombstones.IsDeleted(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("tombstone lookup: %w", err)
	}
	if deleted {
		// Ids are never reused; a tombstone always wins over a save.
		return false, fmt.Errorf("%w: id %s was deleted", estimate.ErrInvalid, e.ID)
	}

	if ownerID != "" {
		e.OwnerID = ownerID
	}
	e.SyncState = estimate.StatePending
	if err := r.store.Upsert(ctx, e); err != nil {
		return false, fmt.Errorf("local store: %w", err)
	}
	epoch, err := r.epochs.Bump(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("epoch ledger: %w", err)
	}

	if ownerID == "" {
		return false, nil
	}
	if !r.monitor.Online() {
		if err := r.pending.Enqueue(ctx, e.ID); err != nil {
			return false, fmt.Errorf("pending queue: %w", err)
		}
		return false, nil
	}

	rec, err := RecordFromEstimate(e, ownerID)
	if err != nil {
		return false, err
	}
	rec.Epoch = epoch
	if err := r.gateway.Upsert(ctx, rec, ownerID); err != nil {
		state := estimate.StatePending
		if errors.Is(err, ErrRemoteConflict) {
			state = estimate.StateFailed
			r.logger.Warn("remote rejected estimate", "id", e.ID, "error", err)
		} else {
			r.logger.Info("remote save deferred", "id", e.ID, "error", err)
		}
		if qerr := r.pending.Enqueue(ctx, e.ID); qerr != nil {
			return false, fmt.Errorf("pending queue: %w", qerr)
		}
		if serr := r.store.SetSyncState(ctx, e.ID, state); serr != nil {
			return false, fmt.Errorf("local store: %w", serr)
		}
		e.SyncState = state
		return false, nil
	}

	if err := r.store.SetSyncState(ctx, e.ID, estimate.StateSynced); err != nil {
		return true, fmt.Errorf("local store: %w", err)
	}
	if err := r.pending.Dequeue(ctx, e.ID); err != nil {
		return true, fmt.Errorf("pending queue: %w", err)
	}
	e.SyncState = estimate.StateSynced
	return true, nil
}

// List returns the merged estimate collection, newest first. With an owner
// and connectivity it merges remote results over local ones (remote wins on
// conflicting ids); a remote failure or timeout degrades silently to the
// local data. Tombstoned ids are excluded regardless of what either side
// returned.
func (r *Reconciler) List(ctx context.Context, ownerID string) ([]*estimate.Estimate, error) {
	local, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("local store: %w", err)
	}

	byID := make(map[string]*estimate.Estimate, len(local))
	for _, e := range local {
		byID[e.ID] = e
	}

	if ownerID != "" && r.monitor.Online() {
		recs, err := r.gateway.ListByOwner(ctx, ownerID)
		if err != nil {
			r.logger.Warn("remote list failed, serving local data", "owner", ownerID, "error", err)
		} else {
			for i := range recs {
				e, err := recs[i].Estimate()
				if err != nil {
					r.logger.Warn("skipping undecodable remote record", "id", recs[i].ID, "error", err)
					continue
				}
				byID[e.ID] = e
			}
		}
	}

	out := make([]*estimate.Estimate, 0, len(byID))
	for id, e := range byID {
		deleted, err := r.tombstones.IsDeleted(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("tombstone lookup: %w", err)
		}
		if !deleted {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the estimate locally and tombstones it immediately, so the
// UI reflects the deletion at once, then attempts the remote delete. On
// confirmed success the tombstone is cleared; on failure it stays in place,
// hiding the id, and the id is queued for a delete retry on a later sync
// pass.
func (r *Reconciler) Delete(ctx context.Context, id, ownerID string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("local store: %w", err)
	}
	if err := r.tombstones.MarkDeleted(ctx, id); err != nil {
		return fmt.Errorf("tombstone ledger: %w", err)
	}
	if _, err := r.epochs.Bump(ctx, id); err != nil {
		return fmt.Errorf("epoch ledger: %w", err)
	}
	// A queued save for this id must not resurrect it remotely.
	if err := r.pending.Dequeue(ctx, id); err != nil {
		return fmt.Errorf("pending queue: %w", err)
	}

	if ownerID == "" {
		return nil
	}
	if !r.monitor.Online() {
		return r.pending.Enqueue(ctx, id)
	}
	if err := r.gateway.Delete(ctx, id, ownerID); err != nil {
		r.logger.Warn("remote delete failed, tombstone retained", "id", id, "error", err)
		return r.pending.Enqueue(ctx, id)
	}
	return r.tombstones.Clear(ctx, id)
}

// SyncPending pushes every queued id to the remote store: tombstoned ids get
// a remote delete, live ids an upsert. Confirmed writes are dequeued and
// marked synced; failures stay queued for the next pass. Safe to call
// repeatedly — idempotent remote upserts make overlap harmless. The returned
// error reflects remote unavailability (so callers can back off); conflicts
// are absorbed and logged. Records the remote already rejected are retried
// here too: an explicit or online-edge pass is the only place they get
// another attempt, the timer-driven loop leaves them alone.
func (r *Reconciler) SyncPending(ctx context.Context, ownerID string) error {
	return r.syncPass(ctx, ownerID, true)
}

func (r *Reconciler) syncPass(ctx context.Context, ownerID string, retryRejected bool) error {
	if ownerID == "" || !r.monitor.Online() {
		return nil
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	ids, err := r.pending.DrainTargets(ctx)
	if err != nil {
		return fmt.Errorf("pending queue: %w", err)
	}

	var unavailable error
	for _, id := range ids {
		deleted, err := r.tombstones.IsDeleted(ctx, id)
		if err != nil {
			return fmt.Errorf("tombstone lookup: %w", err)
		}
		if deleted {
			if err := r.gateway.Delete(ctx, id, ownerID); err != nil {
				r.logger.Info("remote delete retry failed", "id", id, "error", err)
				unavailable = err
				continue
			}
			if err := r.tombstones.Clear(ctx, id); err != nil {
				return fmt.Errorf("tombstone ledger: %w", err)
			}
			if err := r.pending.Dequeue(ctx, id); err != nil {
				return fmt.Errorf("pending queue: %w", err)
			}
			continue
		}

		e, err := r.store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("local store: %w", err)
		}
		if e == nil {
			// Nothing left to push.
			if err := r.pending.Dequeue(ctx, id); err != nil {
				return fmt.Errorf("pending queue: %w", err)
			}
			continue
		}
		if !retryRejected && e.SyncState == estimate.StateFailed {
			// A rejection is not transient; re-sending the same record on
			// every tick cannot succeed. It waits for an explicit or
			// online-edge pass.
			continue
		}

		rec, err := RecordFromEstimate(e, ownerID)
		if err != nil {
			return err
		}
		rec.Epoch, err = r.epochs.Epoch(ctx, id)
		if err != nil {
			return fmt.Errorf("epoch ledger: %w", err)
		}
		if err := r.gateway.Upsert(ctx, rec, ownerID); err != nil {
			if errors.Is(err, ErrRemoteConflict) {
				r.logger.Warn("remote rejected queued estimate", "id", id, "error", err)
				if serr := r.store.SetSyncState(ctx, id, estimate.StateFailed); serr != nil {
					return fmt.Errorf("local store: %w", serr)
				}
			} else {
				unavailable = err
			}
			continue
		}
		if err := r.store.SetSyncState(ctx, id, estimate.StateSynced); err != nil {
			return fmt.Errorf("local store: %w", err)
		}
		if err := r.pending.Dequeue(ctx, id); err != nil {
			return fmt.Errorf("pending queue: %w", err)
		}
	}
	if unavailable != nil {
		return fmt.Errorf("sync pass incomplete: %w", unavailable)
	}
	return nil
}

// RemoteChange is a change notification from the remote store's realtime
// feed.
type RemoteChange struct {
	ID      string
	Deleted bool
	Epoch   int64
	Record  *Record
}

// ObserveRemote applies a remote change notification to local state unless
// it is a stale echo: changes whose epoch is not newer than the last
// locally-applied epoch for that id are ignored, as is anything touching a
// tombstoned id.
func (r *Reconciler) ObserveRemote(ctx context.Context, ch *RemoteChange) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current, err := r.epochs.Epoch(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("epoch ledger: %w", err)
	}
	if ch.Epoch <= current {
		r.logger.Debug("ignoring stale remote change", "id", ch.ID, "epoch", ch.Epoch, "local_epoch", current)
		return nil
	}
	deleted, err := r.tombstones.IsDeleted(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("tombstone lookup: %w", err)
	}
	if deleted {
		return nil
	}

	if ch.Deleted {
		if err := r.store.Remove(ctx, ch.ID); err != nil {
			return fmt.Errorf("local store: %w", err)
		}
	} else {
		if ch.Record == nil {
			return fmt.Errorf("remote change for %s has no record", ch.ID)
		}
		e, err := ch.Record.Estimate()
		if err != nil {
			return err
		}
		if err := r.store.Upsert(ctx, e); err != nil {
			return fmt.Errorf("local store: %w", err)
		}
	}
	return r.epochs.Observe(ctx, ch.ID, ch.Epoch)
}

// Start launches the background sync loop and registers the online-edge
// trigger, so reconnection resumes queued work without user action. The
// loop stops when ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context, ownerID string) {
	cancel := r.monitor.OnOnline(func() {
		if err := r.SyncPending(ctx, ownerID); err != nil {
			r.logger.Warn("online-edge sync failed", "error", err)
		}
	})
	go func() {
		defer cancel()
		r.syncLoop(ctx, ownerID)
	}()
}

// syncLoop retries queued work with exponential backoff between passes.
func (r *Reconciler) syncLoop(ctx context.Context, ownerID string) {
	backoff := r.config.BackoffMin
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if err := r.syncPass(ctx, ownerID, false); err != nil {
			r.logger.Debug("sync pass failed, backing off", "backoff", backoff, "error", err)
			backoff *= 2
			if backoff > r.config.BackoffMax {
				backoff = r.config.BackoffMax
			}
		} else {
			backoff = r.config.BackoffMin
		}
	}
}
