package estsqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/klmalviya77/site-work-simplifier-pro/estimate"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitializeSchema(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"estimates", "_estsync_tombstones", "_estsync_pending", "_estsync_row_meta"}
	for _, table := range expected {
		var count int
		err := db.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestStoreUpsertIdempotent(t *testing.T) {
	db := openTestDB(t)
	store := db.Estimates()
	ctx := context.Background()

	e := estimate.New(estimate.KindElectrical)
	e.Title = "Kitchen rewiring"
	e.AddLineItem("Copper Wire 2.5mm", "Wiring", "m", decimal.NewFromInt(10), decimal.NewFromInt(28))

	require.NoError(t, store.Upsert(ctx, e))
	require.NoError(t, store.Upsert(ctx, e))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Kitchen rewiring", got.Title)
	require.True(t, got.TotalAmount.Equal(decimal.NewFromInt(280)))
	require.Len(t, got.LineItems, 1)
	require.True(t, got.LineItems[0].UnitRate.Equal(decimal.NewFromInt(28)))
	require.Equal(t, e.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestStoreGetMissing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.Estimates().Get(context.Background(), "no-such-id")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreRemoveMissingIsNotError(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Estimates().Remove(context.Background(), "no-such-id"))
}

func TestStoreSyncStateColumnWins(t *testing.T) {
	db := openTestDB(t)
	store := db.Estimates()
	ctx := context.Background()

	e := estimate.New(estimate.KindPlumbing)
	require.NoError(t, store.Upsert(ctx, e))
	require.NoError(t, store.SetSyncState(ctx, e.ID, estimate.StateSynced))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, estimate.StateSynced, got.SyncState)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, estimate.StateSynced, all[0].SyncState)
}

func TestTombstoneLedger(t *testing.T) {
	db := openTestDB(t)
	ledger := db.Tombstones()
	ctx := context.Background()

	deleted, err := ledger.IsDeleted(ctx, "e1")
	require.NoError(t, err)
	require.False(t, deleted)

	require.NoError(t, ledger.MarkDeleted(ctx, "e1"))
	require.NoError(t, ledger.MarkDeleted(ctx, "e1")) // idempotent

	deleted, err = ledger.IsDeleted(ctx, "e1")
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, ledger.Clear(ctx, "e1"))
	deleted, err = ledger.IsDeleted(ctx, "e1")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestPendingQueue(t *testing.T) {
	db := openTestDB(t)
	queue := db.Pending()
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, "a"))
	require.NoError(t, queue.Enqueue(ctx, "b"))
	require.NoError(t, queue.Enqueue(ctx, "a")) // coalesced

	ids, err := queue.DrainTargets(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids, "a")
	require.Contains(t, ids, "b")

	require.NoError(t, queue.Dequeue(ctx, "a"))
	ids, err = queue.DrainTargets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, ids)

	require.NoError(t, queue.Dequeue(ctx, "never-queued"))
}

func TestEpochLedger(t *testing.T) {
	db := openTestDB(t)
	epochs := db.Epochs()
	ctx := context.Background()

	cur, err := epochs.Epoch(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, int64(0), cur)

	first, err := epochs.Bump(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, int64(1), first)

	second, err := epochs.Bump(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, int64(2), second)

	// Observing a lower epoch keeps the stored maximum.
	require.NoError(t, epochs.Observe(ctx, "e1", 1))
	cur, err = epochs.Epoch(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, int64(2), cur)

	require.NoError(t, epochs.Observe(ctx, "e1", 7))
	cur, err = epochs.Epoch(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, int64(7), cur)
}
