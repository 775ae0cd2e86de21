package engine

import (
	"sort"
	"time"

	"github.com/civicgraph/donorlens/internal/model"
	"github.com/shopspring/decimal"
)

// topDonorListSize is how many leading donors the final report retains.
const topDonorListSize = 10

// buildReport runs the one-shot metrics computation over a completed
// checkpoint. Everything here is O(n log n) in donor/transaction count;
// no incremental maintenance exists because this runs only at
// finalization. Reconciliation is filled in separately by the caller.
func buildReport(checkpoint *model.Checkpoint, completedAt time.Time) *model.Report {
	report := &model.Report{
		CommitteeID: checkpoint.CommitteeID,
		SourceID:    checkpoint.SourceID,
		Cycle:       checkpoint.Cycle,
		TxnCount:    checkpoint.TxnCount,
		TotalAmount: checkpoint.TotalAmount,
		DonorCount:  len(checkpoint.DonorTotals),
		CompletedAt: completedAt,
		TopDonors:   []model.DonorShare{},
	}

	if checkpoint.TxnCount == 0 {
		return report
	}

	donors := sortedDonorShares(checkpoint.DonorTotals)
	amounts := sortedAmounts(checkpoint.Amounts)

	report.Mean = checkpoint.TotalAmount.Div(decimal.NewFromInt(int64(checkpoint.TxnCount)))
	report.Median = median(amounts)
	report.Min = amounts[0]
	report.Max = amounts[len(amounts)-1]

	if checkpoint.TotalAmount.IsPositive() {
		report.Top10Ratio = shareOfTop(donors, topDonorListSize, checkpoint.TotalAmount)
		report.WhaleWeight = shareOfTop(donors, whaleCount(len(donors)), checkpoint.TotalAmount)
		report.Nakamoto = nakamotoCoefficient(donors, checkpoint.TotalAmount)
	}

	limit := topDonorListSize
	if len(donors) < limit {
		limit = len(donors)
	}
	report.TopDonors = donors[:limit]

	return report
}

// sortedDonorShares flattens the donor map and sorts it by cumulative
// amount descending. Ties break on key so the ordering is deterministic
// regardless of map iteration order.
func sortedDonorShares(totals map[string]decimal.Decimal) []model.DonorShare {
	donors := make([]model.DonorShare, 0, len(totals))
	for key, amount := range totals {
		donors = append(donors, model.DonorShare{Key: key, Amount: amount})
	}

	sort.Slice(donors, func(i, j int) bool {
		cmp := donors[i].Amount.Cmp(donors[j].Amount)
		if cmp != 0 {
			return cmp > 0
		}
		return donors[i].Key < donors[j].Key
	})

	return donors
}

// sortedAmounts returns a copy of the amount sequence sorted ascending.
func sortedAmounts(amounts []decimal.Decimal) []decimal.Decimal {
	sorted := make([]decimal.Decimal, len(amounts))
	copy(sorted, amounts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cmp(sorted[j]) < 0
	})
	return sorted
}

// median computes the middle element of a sorted sequence, averaging the
// two middle elements for even lengths.
func median(sorted []decimal.Decimal) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}

// shareOfTop returns the fraction of the total held by the k largest
// donors. The result lies in [0, 1].
func shareOfTop(donors []model.DonorShare, k int, total decimal.Decimal) float64 {
	if k > len(donors) {
		k = len(donors)
	}

	sum := decimal.Zero
	for _, donor := range donors[:k] {
		sum = sum.Add(donor.Amount)
	}

	return sum.Div(total).InexactFloat64()
}

// whaleCount is the size of the top ~1% of donors, minimum one.
func whaleCount(donorCount int) int {
	if donorCount == 0 {
		return 0
	}
	count := (donorCount + 99) / 100
	if count < 1 {
		count = 1
	}
	return count
}

// nakamotoCoefficient is the smallest number of donors, taken in
// descending order, whose cumulative total holds a strict majority of
// the total amount. Exactly half is not enough: a group that merely
// ties the remainder does not control the funding. Lower values signal
// higher coordination risk.
func nakamotoCoefficient(donors []model.DonorShare, total decimal.Decimal) int {
	cumulative := decimal.Zero
	for i, donor := range donors {
		cumulative = cumulative.Add(donor.Amount)
		// cumulative > total/2, compared without dividing
		if cumulative.Mul(decimal.NewFromInt(2)).Cmp(total) > 0 {
			return i + 1
		}
	}
	return len(donors)
}
