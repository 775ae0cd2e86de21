package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/civicgraph/donorlens/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		out = append(out, decimal.NewFromInt(v))
	}
	return out
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		sorted []decimal.Decimal
		want   string
	}{
		{name: "odd length", sorted: decimals(10, 20, 30), want: "20"},
		{name: "even length", sorted: decimals(10, 20, 30, 40), want: "25"},
		{name: "single", sorted: decimals(42), want: "42"},
		{name: "empty", sorted: nil, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, median(tt.sorted).Equal(want))
		})
	}
}

func TestNakamotoCoefficient(t *testing.T) {
	tests := []struct {
		name   string
		totals []int64
		want   int
	}{
		// The top donor's 50 merely ties the remainder; control requires a
		// strict majority, so the second donor is needed.
		{name: "dominant pair", totals: []int64{50, 30, 20}, want: 2},
		{name: "ten equal donors", totals: []int64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, want: 6},
		{name: "single whale", totals: []int64{90, 5, 5}, want: 1},
		{name: "exact half is not control", totals: []int64{50, 50}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			donors := make([]model.DonorShare, 0, len(tt.totals))
			total := decimal.Zero
			for i, amount := range tt.totals {
				d := decimal.NewFromInt(amount)
				donors = append(donors, model.DonorShare{Key: fmt.Sprintf("d%d", i), Amount: d})
				total = total.Add(d)
			}
			assert.Equal(t, tt.want, nakamotoCoefficient(donors, total))
		})
	}
}

func TestWhaleCount(t *testing.T) {
	tests := []struct {
		donors int
		want   int
	}{
		{donors: 0, want: 0},
		{donors: 1, want: 1},
		{donors: 50, want: 1},
		{donors: 100, want: 1},
		{donors: 101, want: 2},
		{donors: 250, want: 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, whaleCount(tt.donors), "donors=%d", tt.donors)
	}
}

func TestBuildReportConcentrationFixture(t *testing.T) {
	// Sixteen donors: one whale of 850 plus fifteen donors of 10 each.
	checkpoint := model.NewCheckpoint("acme-pac", "C001", 2026, time.Now())
	records := []model.Contribution{
		{ID: "whale", FirstName: "wilma", LastName: "whale", State: "CA", Zip: "90001", Amount: decimal.NewFromInt(850)},
	}
	for i := 0; i < 15; i++ {
		records = append(records, model.Contribution{
			ID:        fmt.Sprintf("small-%d", i),
			FirstName: fmt.Sprintf("donor%d", i),
			LastName:  "minnow",
			State:     "CA",
			Zip:       "90001",
			Amount:    decimal.NewFromInt(10),
		})
	}
	foldPage(checkpoint, records)

	report := buildReport(checkpoint, time.Now())

	assert.Equal(t, 16, report.DonorCount)
	assert.Equal(t, 16, report.TxnCount)
	assert.True(t, report.TotalAmount.Equal(decimal.NewFromInt(1000)))

	// Top ten donors hold 850 + 9*10 = 940 of 1000.
	assert.InDelta(t, 0.94, report.Top10Ratio, 1e-9)

	// Whale weight is the top ceil(16/100) = 1 donor: 850 of 1000.
	assert.InDelta(t, 0.85, report.WhaleWeight, 1e-9)

	// The single whale alone holds a strict majority of the funding.
	assert.Equal(t, 1, report.Nakamoto)

	assert.GreaterOrEqual(t, report.Top10Ratio, 0.0)
	assert.LessOrEqual(t, report.Top10Ratio, 1.0)
	assert.GreaterOrEqual(t, report.WhaleWeight, 0.0)
	assert.LessOrEqual(t, report.WhaleWeight, 1.0)

	assert.True(t, report.Min.Equal(decimal.NewFromInt(10)))
	assert.True(t, report.Max.Equal(decimal.NewFromInt(850)))
	assert.True(t, report.Median.Equal(decimal.NewFromInt(10)))

	require.Len(t, report.TopDonors, 10)
	assert.Equal(t, "wilma|whale|ca|90001", report.TopDonors[0].Key)
}

func TestBuildReportEmptyCheckpoint(t *testing.T) {
	checkpoint := model.NewCheckpoint("empty-pac", "C002", 2026, time.Now())

	report := buildReport(checkpoint, time.Now())

	assert.Zero(t, report.TxnCount)
	assert.Zero(t, report.DonorCount)
	assert.Zero(t, report.Nakamoto)
	assert.Zero(t, report.Top10Ratio)
	assert.Zero(t, report.WhaleWeight)
	assert.Empty(t, report.TopDonors)
	assert.True(t, report.TotalAmount.IsZero())
}

func TestSortedDonorSharesIsDeterministic(t *testing.T) {
	totals := map[string]decimal.Decimal{
		"b|donor": decimal.NewFromInt(50),
		"a|donor": decimal.NewFromInt(50),
		"c|donor": decimal.NewFromInt(100),
	}

	donors := sortedDonorShares(totals)
	require.Len(t, donors, 3)
	assert.Equal(t, "c|donor", donors[0].Key)
	assert.Equal(t, "a|donor", donors[1].Key)
	assert.Equal(t, "b|donor", donors[2].Key)
}
