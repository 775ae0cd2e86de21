package model

import "time"

// Committee is the principal whose contribution history is analyzed.
// SourceID is resolved once per cycle on the first processing attempt and
// is immutable afterwards.
type Committee struct {
	CreatedAt time.Time
	ID        string
	Name      string
	State     string
	Category  string
	SourceID  string
	Cycle     int
}

// Resolved reports whether the committee has been bound to a disclosure
// source ID for its reporting cycle.
func (c *Committee) Resolved() bool {
	return c.SourceID != ""
}

// Phase describes how far a committee has progressed through analysis.
type Phase string

// Committee analysis phases.
const (
	PhasePending    Phase = "pending"
	PhaseInProgress Phase = "in_progress"
	PhaseComplete   Phase = "complete"
)

// CommitteeStatus is the introspection view of a committee's progress.
// It deliberately exposes only counts and headline metrics, never the
// checkpoint internals.
type CommitteeStatus struct {
	Report     *Report
	ID         string
	Name       string
	Phase      Phase
	Cycle      int
	TxnCount   int
	DonorCount int
	RunCount   int
}

// CurrentCycle returns the two-year reporting cycle containing t.
// Cycles are identified by their even year; an odd year belongs to the
// cycle ending the following year.
func CurrentCycle(t time.Time) int {
	year := t.Year()
	if year%2 != 0 {
		year++
	}
	return year
}
