package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckpointSchemaVersion is the current checkpoint layout version.
// Older checkpoints are upgraded in place on load, never rejected.
const CheckpointSchemaVersion = 3

// Checkpoint is the durable partial-progress record for one committee and
// cycle. It holds only aggregates plus the minimal cursor needed to resume;
// raw contribution records are never stored here.
type Checkpoint struct {
	StartedAt   time.Time                  `json:"started_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	DonorTotals map[string]decimal.Decimal `json:"donor_totals"`
	CommitteeID string                     `json:"committee_id"`
	SourceID    string                     `json:"source_id"`
	Cursor      string                     `json:"cursor"`
	Amounts     []decimal.Decimal          `json:"amounts"`
	TotalAmount decimal.Decimal            `json:"total_amount"`
	Cycle       int                        `json:"cycle"`
	TxnCount    int                        `json:"txn_count"`
	PagesSeen   int                        `json:"pages_seen"`

	// ReportedCount is the source's informational total, captured once from
	// pagination metadata. It is displayed for validation but never drives
	// completion.
	ReportedCount int `json:"reported_count"`

	RunCount      int `json:"run_count"`
	SchemaVersion int `json:"schema_version"`
}

// NewCheckpoint initializes an empty checkpoint for a resolved committee.
func NewCheckpoint(committeeID, sourceID string, cycle int, now time.Time) *Checkpoint {
	return &Checkpoint{
		CommitteeID:   committeeID,
		SourceID:      sourceID,
		Cycle:         cycle,
		SchemaVersion: CheckpointSchemaVersion,
		DonorTotals:   make(map[string]decimal.Decimal),
		Amounts:       make([]decimal.Decimal, 0),
		TotalAmount:   decimal.Zero,
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Upgrade back-fills fields absent from checkpoints written by earlier
// schema versions with safe defaults.
func (c *Checkpoint) Upgrade() {
	if c.DonorTotals == nil {
		c.DonorTotals = make(map[string]decimal.Decimal)
	}
	if c.Amounts == nil {
		c.Amounts = make([]decimal.Decimal, 0)
	}
	if c.SchemaVersion < CheckpointSchemaVersion {
		c.SchemaVersion = CheckpointSchemaVersion
	}
}

// Fold merges one countable contribution into the running aggregates.
// Callers are expected to filter with Countable first; Fold re-checks to
// keep the aggregates safe against ingress mistakes.
func (c *Checkpoint) Fold(record Contribution) {
	if !record.Countable() {
		return
	}
	key := record.DonorKey()
	c.DonorTotals[key] = c.DonorTotals[key].Add(record.Amount)
	c.Amounts = append(c.Amounts, record.Amount)
	c.TotalAmount = c.TotalAmount.Add(record.Amount)
	c.TxnCount++
}
