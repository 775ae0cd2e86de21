// Package engine implements the resumable donor-concentration analysis
// engine. Each invocation advances at most one committee by a bounded
// number of pages; all cross-invocation state lives in storage.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicgraph/donorlens/internal/common"
	"github.com/civicgraph/donorlens/internal/model"
	"github.com/civicgraph/donorlens/internal/service"
	"github.com/civicgraph/donorlens/internal/storage"
	"github.com/google/uuid"
)

// timeoutHeadroom is how long before the invocation deadline the fetch
// loop stops, so a forced termination never catches a page mid-fold.
const timeoutHeadroom = 5 * time.Second

// Config holds configuration options for the analysis engine.
type Config struct {
	// PageSize is the number of records requested per page.
	PageSize int
	// PageBudget is the maximum pages fetched in one invocation.
	PageBudget int
	// InvocationTimeout bounds one invocation's wall-clock time.
	InvocationTimeout time.Duration
	// TolerancePct is the reconciliation flag threshold in percent.
	TolerancePct float64
	// StoreDetails enables the optional bulk detail store.
	StoreDetails bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:          100,
		PageBudget:        5,
		InvocationTimeout: 60 * time.Second,
		TolerancePct:      1.0,
		StoreDetails:      false,
	}
}

// Engine orchestrates checkpointed analysis of committee contribution
// histories.
type Engine struct {
	store    service.Storage
	source   service.ContributionSource
	totals   service.TotalsSource
	resolver service.CommitteeResolver
	logger   *slog.Logger
	now      func() time.Time
	cfg      Config
}

// New creates an engine with the default configuration.
func New(store service.Storage, source service.ContributionSource, totals service.TotalsSource, resolver service.CommitteeResolver) *Engine {
	return NewWithConfig(store, source, totals, resolver, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(store service.Storage, source service.ContributionSource, totals service.TotalsSource, resolver service.CommitteeResolver, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.PageBudget <= 0 {
		cfg.PageBudget = DefaultConfig().PageBudget
	}
	if cfg.TolerancePct <= 0 {
		cfg.TolerancePct = DefaultConfig().TolerancePct
	}

	return &Engine{
		store:    store,
		source:   source,
		totals:   totals,
		resolver: resolver,
		cfg:      cfg,
		logger:   slog.Default().With("component", "engine"),
		now:      time.Now,
	}
}

// InvocationResult summarizes what one ProcessNext call did.
type InvocationResult struct {
	Report           *model.Report
	FetchErr         error
	RunID            string
	CommitteeID      string
	Cycle            int
	PagesFetched     int
	RecordsSeen      int
	Complete         bool
	QueueEmpty       bool
	Partial          bool
	ResolutionFailed bool
}

// ProcessNext advances the committee at the head of the queue by up to the
// configured page budget. It is safe to call on a fixed schedule: every
// path either completes the committee, leaves it at the head with saved
// progress, or reports an empty queue.
func (e *Engine) ProcessNext(ctx context.Context) (*InvocationResult, error) {
	result := &InvocationResult{RunID: uuid.NewString()}
	logger := e.logger.With("run_id", result.RunID)

	committeeID, err := e.store.QueueHead(ctx)
	if errors.Is(err, storage.ErrQueueEmpty) {
		result.QueueEmpty = true
		logger.Debug("Queue empty, nothing to process")
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue head: %w", err)
	}
	result.CommitteeID = committeeID
	logger = logger.With("committee_id", committeeID)

	committee, err := e.store.GetCommittee(ctx, committeeID)
	if err != nil {
		return nil, fmt.Errorf("queued committee missing from store: %w", err)
	}
	result.Cycle = committee.Cycle

	// A committee whose report already exists must not trigger any
	// outbound calls; it only needs to leave the queue.
	if report, err := e.store.GetReport(ctx, committeeID, committee.Cycle); err == nil {
		logger.Info("Report already exists, removing committee from queue")
		if err := e.store.Dequeue(ctx, committeeID); err != nil {
			return nil, fmt.Errorf("failed to dequeue completed committee: %w", err)
		}
		result.Complete = true
		result.Report = report
		return result, nil
	}

	if !committee.Resolved() {
		sourceID, err := e.resolver.Resolve(ctx, committee.Name, committee.State, committee.Category)
		if err != nil {
			// Fatal for this committee this invocation; it stays at the
			// head for a later scheduled attempt.
			logger.Error("Committee resolution failed", "error", err)
			result.ResolutionFailed = true
			return result, nil
		}
		committee.SourceID = sourceID
		if err := e.store.SaveCommittee(ctx, committee); err != nil {
			return nil, fmt.Errorf("failed to save resolved committee: %w", err)
		}
	}

	checkpoint, err := e.loadOrBootstrap(ctx, committee)
	if err != nil {
		return nil, err
	}

	checkpoint.RunCount++
	if err := e.store.SaveCheckpoint(ctx, checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	outcome := e.fetchPages(ctx, committee, checkpoint, logger)
	result.PagesFetched = outcome.pages
	result.RecordsSeen = outcome.records
	result.Partial = outcome.fetchErr != nil
	result.FetchErr = outcome.fetchErr
	if outcome.saveErr != nil {
		return result, outcome.saveErr
	}

	if !outcome.complete {
		logger.Info("Invocation budget spent, committee remains queued",
			"pages", outcome.pages,
			"records", outcome.records,
			"txn_count", checkpoint.TxnCount,
			"partial", result.Partial)
		return result, nil
	}

	report, err := e.finalize(ctx, committee, checkpoint, logger)
	if err != nil {
		return result, err
	}

	result.Complete = true
	result.Report = report
	return result, nil
}

// loadOrBootstrap returns the committee's checkpoint, creating an empty
// one on the first processing attempt.
func (e *Engine) loadOrBootstrap(ctx context.Context, committee *model.Committee) (*model.Checkpoint, error) {
	checkpoint, err := e.store.GetCheckpoint(ctx, committee.ID, committee.Cycle)
	if err == nil {
		return checkpoint, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	e.logger.Info("Bootstrapping checkpoint",
		"committee_id", committee.ID,
		"source_id", committee.SourceID,
		"cycle", committee.Cycle)

	return model.NewCheckpoint(committee.ID, committee.SourceID, committee.Cycle, e.now().UTC()), nil
}

// finalize runs the one-shot completion path: metrics, reconciliation,
// report write, checkpoint deletion, dequeue. The report write comes
// first; the committee leaves the queue only once the report is durable.
func (e *Engine) finalize(ctx context.Context, committee *model.Committee, checkpoint *model.Checkpoint, logger *slog.Logger) (*model.Report, error) {
	report := buildReport(checkpoint, e.now().UTC())
	report.Reconciliation = e.reconcile(ctx, committee.SourceID, committee.Cycle, checkpoint.TotalAmount, logger)

	if err := e.store.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	if err := e.store.DeleteCheckpoint(ctx, committee.ID, committee.Cycle); err != nil {
		return nil, fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	if err := e.store.Dequeue(ctx, committee.ID); err != nil {
		return nil, fmt.Errorf("failed to dequeue committee: %w", err)
	}

	logger.Info("Committee analysis complete",
		"txn_count", report.TxnCount,
		"donor_count", report.DonorCount,
		"total_amount", report.TotalAmount,
		"reported_count", checkpoint.ReportedCount,
		"reconciliation_flagged", report.Reconciliation.Flagged)

	return report, nil
}

// Register creates a committee record and adds it to the pending queue.
// The reporting cycle is chosen deterministically from the current date.
func (e *Engine) Register(ctx context.Context, id, name, state, category string) (*model.Committee, error) {
	committee := &model.Committee{
		ID:       id,
		Name:     name,
		State:    state,
		Category: category,
		Cycle:    model.CurrentCycle(e.now()),
	}

	if err := e.store.SaveCommittee(ctx, committee); err != nil {
		return nil, fmt.Errorf("failed to save committee: %w", err)
	}
	if err := e.store.Enqueue(ctx, committee.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue committee: %w", err)
	}

	e.logger.Info("Registered committee", "committee_id", id, "cycle", committee.Cycle)
	return committee, nil
}

// Reprocess deletes a committee's report and any still-present checkpoint,
// then re-enqueues it to force re-collection.
func (e *Engine) Reprocess(ctx context.Context, committeeID string) error {
	committee, err := e.store.GetCommittee(ctx, committeeID)
	if err != nil {
		return fmt.Errorf("failed to load committee: %w", err)
	}

	if err := e.store.DeleteReport(ctx, committeeID, committee.Cycle); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if err := e.store.DeleteCheckpoint(ctx, committeeID, committee.Cycle); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	if err := e.store.Enqueue(ctx, committeeID); err != nil {
		return fmt.Errorf("failed to re-enqueue committee: %w", err)
	}

	e.logger.Info("Committee queued for reprocessing", "committee_id", committeeID)
	return nil
}

// Statuses reports each committee's phase without exposing checkpoint
// internals.
func (e *Engine) Statuses(ctx context.Context) ([]model.CommitteeStatus, error) {
	committees, err := e.store.ListCommittees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list committees: %w", err)
	}

	statuses := make([]model.CommitteeStatus, 0, len(committees))
	for _, committee := range committees {
		status := model.CommitteeStatus{
			ID:    committee.ID,
			Name:  committee.Name,
			Cycle: committee.Cycle,
			Phase: model.PhasePending,
		}

		if report, err := e.store.GetReport(ctx, committee.ID, committee.Cycle); err == nil {
			status.Phase = model.PhaseComplete
			status.Report = report
			status.TxnCount = report.TxnCount
			status.DonorCount = report.DonorCount
		} else if checkpoint, err := e.store.GetCheckpoint(ctx, committee.ID, committee.Cycle); err == nil {
			status.Phase = model.PhaseInProgress
			status.TxnCount = checkpoint.TxnCount
			status.DonorCount = len(checkpoint.DonorTotals)
			status.RunCount = checkpoint.RunCount
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
