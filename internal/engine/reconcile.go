package engine

import (
	"context"
	"log/slog"

	"github.com/civicgraph/donorlens/internal/model"
	"github.com/shopspring/decimal"
)

// reconcile fetches the authoritative total and classifies the delta. A
// totals fetch failure degrades to a no-reference reconciliation; it never
// blocks finalization.
func (e *Engine) reconcile(ctx context.Context, sourceID string, cycle int, computed decimal.Decimal, logger *slog.Logger) model.Reconciliation {
	authoritative, err := e.totals.TotalReceipts(ctx, sourceID, cycle)
	if err != nil {
		logger.Warn("Failed to fetch authoritative total, finalizing without reference", "error", err)
		return model.Reconciliation{TolerancePct: e.cfg.TolerancePct}
	}

	return classifyDelta(computed, authoritative, e.cfg.TolerancePct)
}

// classifyDelta compares the computed sum against the authoritative total.
// Percent difference is |computed - authoritative| / authoritative x 100
// when the authoritative figure is positive; a zero authoritative total
// yields no reference. A raised flag is informational only: legitimate
// causes such as shared-cost allocation across joint fundraising produce
// expected deltas.
func classifyDelta(computed, authoritative decimal.Decimal, tolerancePct float64) model.Reconciliation {
	reconciliation := model.Reconciliation{
		AuthoritativeTotal: authoritative,
		TolerancePct:       tolerancePct,
	}

	if !authoritative.IsPositive() {
		return reconciliation
	}

	reconciliation.HasReference = true
	reconciliation.AbsoluteDelta = computed.Sub(authoritative).Abs()
	reconciliation.PercentDelta = reconciliation.AbsoluteDelta.
		Div(authoritative).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()
	reconciliation.Flagged = reconciliation.PercentDelta > tolerancePct

	return reconciliation
}
