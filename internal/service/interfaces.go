// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/civicgraph/donorlens/internal/model"
	"github.com/shopspring/decimal"
)

// ContributionPage is one batch of records from the paginated disclosure
// source plus its pagination metadata.
type ContributionPage struct {
	// Cursor is the opaque continuation token for the next page. It is
	// carried forward unmodified; the first request omits it.
	Cursor  string
	Records []model.Contribution

	// TotalCount is the source's informational record count. It must never
	// be treated as authoritative for completion.
	TotalCount int
}

// ContributionSource fetches one page of itemized contributions.
// A page with zero records is the only valid completion signal.
type ContributionSource interface {
	FetchPage(ctx context.Context, sourceID string, cycle, pageSize int, cursor string) (*ContributionPage, error)
}

// TotalsSource returns the authoritative aggregate receipts figure for a
// committee and cycle, consumed only post-finalization for reconciliation.
type TotalsSource interface {
	TotalReceipts(ctx context.Context, sourceID string, cycle int) (decimal.Decimal, error)
}

// CommitteeResolver resolves a committee display name plus coarse filters
// to a disclosure source ID. The first viable match wins; deeper
// disambiguation is a known limitation.
type CommitteeResolver interface {
	Resolve(ctx context.Context, name, state, category string) (string, error)
}

// Storage defines the contract for the persistence layer. All
// cross-invocation state passes exclusively through it.
type Storage interface {
	// Committee operations
	SaveCommittee(ctx context.Context, committee *model.Committee) error
	GetCommittee(ctx context.Context, id string) (*model.Committee, error)
	ListCommittees(ctx context.Context) ([]model.Committee, error)

	// Checkpoint operations. SaveCheckpoint replaces the entire value
	// atomically; a partially-written checkpoint is never observable.
	SaveCheckpoint(ctx context.Context, checkpoint *model.Checkpoint) error
	GetCheckpoint(ctx context.Context, committeeID string, cycle int) (*model.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, committeeID string, cycle int) error

	// Report operations
	SaveReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, committeeID string, cycle int) (*model.Report, error)
	ListReports(ctx context.Context) ([]model.Report, error)
	DeleteReport(ctx context.Context, committeeID string, cycle int) error
	PruneReports(ctx context.Context, currentCycle, keepCycles int) (int, error)

	// Queue operations. A committee appears at most once and is removed
	// only after its report has been durably written.
	Enqueue(ctx context.Context, committeeID string) error
	QueueHead(ctx context.Context) (string, error)
	Dequeue(ctx context.Context, committeeID string) error
	ListQueue(ctx context.Context) ([]string, error)

	// Optional bulk detail store, written outside the checkpoint. Not
	// required for engine correctness.
	SaveContributions(ctx context.Context, committeeID string, cycle int, records []model.Contribution) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
