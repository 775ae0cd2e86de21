package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/civicgraph/donorlens/internal/disclosure"
	"github.com/civicgraph/donorlens/internal/engine"
	"github.com/civicgraph/donorlens/internal/model"
	"github.com/civicgraph/donorlens/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDrainFixture(t *testing.T, mock *disclosure.MockSource) (*engine.Engine, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return engine.New(store, mock, mock, mock), store
}

func drainTestPage(n int, amount int64) []model.Contribution {
	records := make([]model.Contribution, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, model.Contribution{
			ID:        fmt.Sprintf("txn-%d", i),
			FirstName: fmt.Sprintf("donor%d", i),
			LastName:  "drain",
			State:     "CA",
			Zip:       "90210",
			Amount:    decimal.NewFromInt(amount),
		})
	}
	return records
}

func TestDrainQueueAbortsOnPersistentPartialFailures(t *testing.T) {
	ctx := context.Background()

	mock := &disclosure.MockSource{
		ResolveID: "C100",
		FetchErr:  errors.New("bad request: invalid filter"),
	}
	eng, store := newDrainFixture(t, mock)

	_, err := eng.Register(ctx, "stuck-pac", "Stuck PAC", "CA", "")
	require.NoError(t, err)

	err = drainQueue(ctx, eng, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consecutive partial")

	// Outbound calls stay bounded by the partial cap.
	assert.Equal(t, maxConsecutivePartials, mock.FetchCalls)

	// The committee keeps its place for a later scheduled attempt.
	head, err := store.QueueHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stuck-pac", head)
}

func TestDrainQueueRecoversFromTransientFailure(t *testing.T) {
	ctx := context.Background()

	mock := &disclosure.MockSource{
		ResolveID: "C101",
		Pages:     [][]model.Contribution{drainTestPage(10, 10)},
		PageErrs:  map[int]error{0: errors.New("gateway timeout")},
		Total:     decimal.NewFromInt(100),
	}
	eng, store := newDrainFixture(t, mock)

	committee, err := eng.Register(ctx, "flaky-pac", "Flaky PAC", "NY", "")
	require.NoError(t, err)

	// One transient failure is below the cap; the drain retries, the
	// committee completes, and the queue empties.
	require.NoError(t, drainQueue(ctx, eng, store))

	report, err := store.GetReport(ctx, committee.ID, committee.Cycle)
	require.NoError(t, err)
	assert.Equal(t, 10, report.TxnCount)

	_, err = store.QueueHead(ctx)
	assert.ErrorIs(t, err, storage.ErrQueueEmpty)
}
