package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/civicgraph/donorlens/internal/model"
)

// fetchOutcome is the result of one invocation's page loop.
type fetchOutcome struct {
	// fetchErr is the transient error that aborted the loop, if any.
	// Progress through the last successful page is already persisted.
	fetchErr error
	// saveErr is a checkpoint write failure. Unlike fetchErr it is an
	// invocation-level failure and must propagate.
	saveErr  error
	pages    int
	records  int
	complete bool
}

// fetchPages pulls up to the page budget from the committee's saved
// cursor, folding each page into the checkpoint and saving after every
// page so a forced termination never loses more than one page of
// progress.
//
// A page with zero records is the ONLY completion signal. Exhausting the
// page budget, the invocation timeout, or the context is explicitly not
// completion: the committee stays queued and the next invocation resumes
// from the saved cursor.
func (e *Engine) fetchPages(ctx context.Context, committee *model.Committee, checkpoint *model.Checkpoint, logger *slog.Logger) fetchOutcome {
	var outcome fetchOutcome
	start := e.now()

	for outcome.pages < e.cfg.PageBudget {
		select {
		case <-ctx.Done():
			logger.Warn("Context canceled, stopping page loop", "pages", outcome.pages)
			outcome.fetchErr = ctx.Err()
			return outcome
		default:
		}

		if e.cfg.InvocationTimeout > 0 {
			remaining := e.cfg.InvocationTimeout - e.now().Sub(start)
			if remaining <= timeoutHeadroom {
				logger.Warn("Invocation deadline near, stopping page loop",
					"pages", outcome.pages, "remaining", remaining)
				return outcome
			}
		}

		page, err := e.source.FetchPage(ctx, committee.SourceID, committee.Cycle, e.cfg.PageSize, checkpoint.Cursor)
		if err != nil {
			// Transient failure: abort without marking completion. The
			// checkpoint already holds everything folded so far.
			logger.Warn("Page fetch failed, persisted progress stands",
				"pages", outcome.pages, "cursor", checkpoint.Cursor, "error", err)
			outcome.fetchErr = err
			return outcome
		}

		// Informational total, captured once for validation display.
		if checkpoint.ReportedCount == 0 && page.TotalCount > 0 {
			checkpoint.ReportedCount = page.TotalCount
		}

		if len(page.Records) == 0 {
			outcome.complete = true
			return outcome
		}

		counted, excluded := foldPage(checkpoint, page.Records)
		checkpoint.Cursor = page.Cursor
		outcome.pages++
		outcome.records += len(page.Records)

		if e.cfg.StoreDetails {
			// Additive; a detail write failure never blocks the engine.
			if err := e.store.SaveContributions(ctx, committee.ID, committee.Cycle, page.Records); err != nil {
				logger.Warn("Failed to store contribution details", "error", err)
			}
		}

		// Cursor advance and aggregate fold land in one atomic row
		// replace; an at-least-once-delivered page cannot double-count.
		if err := e.store.SaveCheckpoint(ctx, checkpoint); err != nil {
			outcome.saveErr = fmt.Errorf("failed to save checkpoint after page: %w", err)
			return outcome
		}

		logger.Debug("Folded page",
			"page", outcome.pages,
			"counted", counted,
			"excluded", excluded,
			"txn_count", checkpoint.TxnCount,
			"cursor", checkpoint.Cursor)
	}

	return outcome
}
