package engine

import (
	"testing"
	"time"

	"github.com/civicgraph/donorlens/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckpoint() *model.Checkpoint {
	return model.NewCheckpoint("acme-pac", "C001", 2026, time.Now())
}

func TestFoldPageDeduplicatesNormalizedDonors(t *testing.T) {
	checkpoint := newCheckpoint()

	records := []model.Contribution{
		{ID: "a", FirstName: "john", LastName: "SMITH ", State: "ca", Zip: "90210", Amount: decimal.NewFromInt(100)},
		{ID: "b", FirstName: "JOHN", LastName: "Smith", State: "CA", Zip: "90210 ", Amount: decimal.NewFromInt(50)},
	}

	counted, excluded := foldPage(checkpoint, records)
	assert.Equal(t, 2, counted)
	assert.Zero(t, excluded)

	require.Len(t, checkpoint.DonorTotals, 1)
	total, ok := checkpoint.DonorTotals["john|smith|ca|90210"]
	require.True(t, ok)
	assert.True(t, total.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 2, checkpoint.TxnCount)
}

func TestFoldPageExcludesMemoedRecords(t *testing.T) {
	checkpoint := newCheckpoint()

	records := []model.Contribution{
		{ID: "a", FirstName: "jane", LastName: "doe", State: "NY", Zip: "10001", Amount: decimal.NewFromInt(200)},
		{ID: "b", FirstName: "jane", LastName: "doe", State: "NY", Zip: "10001", Amount: decimal.NewFromInt(500), Memoed: true},
	}

	counted, excluded := foldPage(checkpoint, records)
	assert.Equal(t, 1, counted)
	assert.Equal(t, 1, excluded)

	// The memoed record changed nothing: not the sum, not the count, not
	// any donor's cumulative total.
	assert.True(t, checkpoint.TotalAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, checkpoint.TxnCount)
	assert.True(t, checkpoint.DonorTotals["jane|doe|ny|10001"].Equal(decimal.NewFromInt(200)))
	assert.Len(t, checkpoint.Amounts, 1)
}

func TestFoldPageExcludesNonPositiveAmounts(t *testing.T) {
	checkpoint := newCheckpoint()

	records := []model.Contribution{
		{ID: "a", FirstName: "al", LastName: "gray", State: "TX", Zip: "73301", Amount: decimal.NewFromInt(75)},
		{ID: "b", FirstName: "bo", LastName: "vale", State: "TX", Zip: "73301", Amount: decimal.Zero},
		{ID: "c", FirstName: "cy", LastName: "nash", State: "TX", Zip: "73301", Amount: decimal.NewFromInt(-20)},
	}

	counted, excluded := foldPage(checkpoint, records)
	assert.Equal(t, 1, counted)
	assert.Equal(t, 2, excluded)
	assert.True(t, checkpoint.TotalAmount.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, 1, checkpoint.TxnCount)
}

func TestFoldPageIsOrderIndependent(t *testing.T) {
	records := []model.Contribution{
		{ID: "a", FirstName: "ann", LastName: "ray", State: "CA", Zip: "94016", Amount: decimal.NewFromInt(30)},
		{ID: "b", FirstName: "ben", LastName: "oak", State: "CA", Zip: "94016", Amount: decimal.NewFromInt(45)},
		{ID: "c", FirstName: "ann", LastName: "ray", State: "CA", Zip: "94016", Amount: decimal.NewFromInt(25)},
	}
	reversed := []model.Contribution{records[2], records[1], records[0]}

	forward := newCheckpoint()
	backward := newCheckpoint()
	foldPage(forward, records)
	foldPage(backward, reversed)

	assert.True(t, forward.TotalAmount.Equal(backward.TotalAmount))
	assert.Equal(t, forward.TxnCount, backward.TxnCount)
	for key, amount := range forward.DonorTotals {
		assert.True(t, amount.Equal(backward.DonorTotals[key]), "donor %s", key)
	}
}
