package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/civicgraph/donorlens/internal/disclosure"
	"github.com/civicgraph/donorlens/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStopsBeforeInvocationDeadline(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	mock := &disclosure.MockSource{
		ResolveID: "C010",
		Pages: [][]model.Contribution{
			makePage(0, 100, 10),
			makePage(1, 100, 10),
			makePage(2, 100, 10),
			makePage(3, 100, 10),
		},
	}

	// A budget far above the page count: only the elapsed-time guard can
	// stop this invocation early.
	cfg := DefaultConfig()
	cfg.PageBudget = 10
	cfg.InvocationTimeout = 60 * time.Second
	eng := newTestEngine(t, store, mock, cfg)

	_, err := eng.Register(ctx, "slow-pac", "Slow PAC", "CA", "")
	require.NoError(t, err)

	// Each clock read advances 25s, so the loop's third deadline check
	// sees under five seconds of headroom and must stop after two pages.
	current := time.Now()
	eng.now = func() time.Time {
		now := current
		current = current.Add(25 * time.Second)
		return now
	}

	result, err := eng.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, result.Complete)
	assert.False(t, result.Partial)
	assert.Equal(t, 2, result.PagesFetched)

	// Progress through the last folded page is saved; the committee stays
	// queued and the next invocation resumes from the saved cursor.
	checkpoint, err := store.GetCheckpoint(ctx, "slow-pac", result.Cycle)
	require.NoError(t, err)
	assert.Equal(t, 200, checkpoint.TxnCount)
	assert.Equal(t, "2", checkpoint.Cursor)

	head, err := store.QueueHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, "slow-pac", head)
}

func TestFetchStopsOnCanceledContext(t *testing.T) {
	store := newTestStore(t)

	mock := &disclosure.MockSource{
		Pages: [][]model.Contribution{makePage(0, 10, 10)},
	}
	eng := newTestEngine(t, store, mock, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	committee := &model.Committee{ID: "halt-pac", SourceID: "C011", Cycle: 2026}
	checkpoint := model.NewCheckpoint(committee.ID, committee.SourceID, committee.Cycle, time.Now())

	outcome := eng.fetchPages(ctx, committee, checkpoint, slog.Default())

	assert.ErrorIs(t, outcome.fetchErr, context.Canceled)
	assert.False(t, outcome.complete)
	assert.Zero(t, outcome.pages)
	assert.Zero(t, mock.FetchCalls)
}
