package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonorShare is one entry of a report's top-donor list.
type DonorShare struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// Reconciliation records the comparison of the computed total against the
// disclosure API's authoritative figure. A raised flag is informational
// only; it never blocks finalization.
type Reconciliation struct {
	AuthoritativeTotal decimal.Decimal `json:"authoritative_total"`
	AbsoluteDelta      decimal.Decimal `json:"absolute_delta"`
	PercentDelta       float64         `json:"percent_delta"`
	TolerancePct       float64         `json:"tolerance_pct"`
	HasReference       bool            `json:"has_reference"`
	Flagged            bool            `json:"flagged"`
}

// Report is the immutable final analysis record for one committee and
// cycle. Writing it marks true completion; the checkpoint is deleted and
// the committee leaves the queue.
type Report struct {
	CompletedAt    time.Time
	CommitteeID    string
	SourceID       string
	TopDonors      []DonorShare
	TotalAmount    decimal.Decimal
	Mean           decimal.Decimal
	Median         decimal.Decimal
	Min            decimal.Decimal
	Max            decimal.Decimal
	Reconciliation Reconciliation
	Top10Ratio     float64
	WhaleWeight    float64
	Nakamoto       int
	Cycle          int
	DonorCount     int
	TxnCount       int
}
