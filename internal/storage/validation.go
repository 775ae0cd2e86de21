package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/civicgraph/donorlens/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidCycle      = errors.New("cycle must be a positive even year")
	ErrInvalidCommittee  = errors.New("invalid committee")
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")
	ErrInvalidReport     = errors.New("invalid report")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCycle ensures a reporting cycle is plausible.
func validateCycle(cycle int) error {
	if cycle <= 0 || cycle%2 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCycle, cycle)
	}
	return nil
}

// validateCommittee validates a committee.
func validateCommittee(committee *model.Committee) error {
	if committee == nil {
		return fmt.Errorf("%w: committee", ErrNilParameter)
	}
	if strings.TrimSpace(committee.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCommittee)
	}
	if strings.TrimSpace(committee.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCommittee)
	}
	if err := validateCycle(committee.Cycle); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommittee, err)
	}
	return nil
}

// validateCheckpoint validates a checkpoint before persisting it.
func validateCheckpoint(checkpoint *model.Checkpoint) error {
	if checkpoint == nil {
		return fmt.Errorf("%w: checkpoint", ErrNilParameter)
	}
	if checkpoint.CommitteeID == "" {
		return fmt.Errorf("%w: missing committee ID", ErrInvalidCheckpoint)
	}
	if err := validateCycle(checkpoint.Cycle); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	if checkpoint.TxnCount < 0 {
		return fmt.Errorf("%w: negative transaction count", ErrInvalidCheckpoint)
	}
	return nil
}

// validateReport validates a final analysis report.
func validateReport(report *model.Report) error {
	if report == nil {
		return fmt.Errorf("%w: report", ErrNilParameter)
	}
	if report.CommitteeID == "" {
		return fmt.Errorf("%w: missing committee ID", ErrInvalidReport)
	}
	if report.SourceID == "" {
		return fmt.Errorf("%w: missing source ID", ErrInvalidReport)
	}
	if err := validateCycle(report.Cycle); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if report.Top10Ratio < 0 || report.Top10Ratio > 1 {
		return fmt.Errorf("%w: top-10 ratio out of bounds", ErrInvalidReport)
	}
	if report.WhaleWeight < 0 || report.WhaleWeight > 1 {
		return fmt.Errorf("%w: whale weight out of bounds", ErrInvalidReport)
	}
	return nil
}
