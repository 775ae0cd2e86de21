package engine

import (
	"github.com/civicgraph/donorlens/internal/model"
)

// foldPage folds one fetched page into the checkpoint's running
// aggregates: per-donor cumulative amounts with insert-or-add semantics,
// the append-only amount sequence, and the running count and sum.
//
// Memo/sub-total records and non-positive amounts are discarded before
// they can touch any aggregate. Folding is associative and
// order-independent within a page.
func foldPage(checkpoint *model.Checkpoint, records []model.Contribution) (counted, excluded int) {
	for _, record := range records {
		if !record.Countable() {
			excluded++
			continue
		}
		checkpoint.Fold(record)
		counted++
	}
	checkpoint.PagesSeen++
	return counted, excluded
}
