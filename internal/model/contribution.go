// Package model defines the core domain types shared across the application.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Contribution represents a single itemized receipt from the disclosure API.
type Contribution struct {
	Date      time.Time
	ID        string
	FirstName string
	LastName  string
	City      string
	State     string
	Zip       string
	Amount    decimal.Decimal

	// Memoed marks memo/sub-total entries that must never enter aggregates.
	Memoed bool
}

// DonorKey returns the normalized composite identity used to deduplicate
// contributors. Two records with the same normalized name, state, and ZIP
// always map to the same key regardless of raw casing or whitespace.
func (c *Contribution) DonorKey() string {
	parts := []string{
		normalizeField(c.FirstName),
		normalizeField(c.LastName),
		normalizeField(c.State),
		strings.TrimSpace(c.Zip),
	}
	return strings.Join(parts, "|")
}

// Countable reports whether the contribution may enter aggregates.
// Memoed entries and non-positive amounts are excluded.
func (c *Contribution) Countable() bool {
	return !c.Memoed && c.Amount.IsPositive()
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
