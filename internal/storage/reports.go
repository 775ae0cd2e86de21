package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/civicgraph/donorlens/internal/common"
	"github.com/civicgraph/donorlens/internal/model"
	"github.com/shopspring/decimal"
)

// SaveReport persists a final analysis report for a committee and cycle.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *model.Report) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReport(report); err != nil {
		return err
	}

	topDonors, err := json.Marshal(report.TopDonors)
	if err != nil {
		return fmt.Errorf("failed to serialize top donors: %w", err)
	}
	reconciliation, err := json.Marshal(report.Reconciliation)
	if err != nil {
		return fmt.Errorf("failed to serialize reconciliation: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO reports (
			committee_id, cycle, source_id, donor_count, txn_count,
			total_amount, mean, median, min, max,
			top10_ratio, whale_weight, nakamoto,
			top_donors, reconciliation, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query,
		report.CommitteeID,
		report.Cycle,
		report.SourceID,
		report.DonorCount,
		report.TxnCount,
		report.TotalAmount.String(),
		report.Mean.String(),
		report.Median.String(),
		report.Min.String(),
		report.Max.String(),
		report.Top10Ratio,
		report.WhaleWeight,
		report.Nakamoto,
		string(topDonors),
		string(reconciliation),
		report.CompletedAt,
	); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetReport retrieves the report for a committee and cycle.
func (s *SQLiteStorage) GetReport(ctx context.Context, committeeID string, cycle int) (*model.Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return nil, err
	}

	query := reportSelect + ` WHERE committee_id = ? AND cycle = ?`

	report, err := scanReport(s.db.QueryRowContext(ctx, query, committeeID, cycle))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s/%d: %w", committeeID, cycle, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return report, nil
}

// ListReports returns all stored reports, most recently completed first.
func (s *SQLiteStorage) ListReports(ctx context.Context) ([]model.Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, reportSelect+` ORDER BY completed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = closeErr
		}
	}()

	var reports []model.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

// DeleteReport removes the report for a committee and cycle. Missing
// reports are not an error; reprocessing must be idempotent.
func (s *SQLiteStorage) DeleteReport(ctx context.Context, committeeID string, cycle int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return err
	}

	query := `DELETE FROM reports WHERE committee_id = ? AND cycle = ?`
	if _, err := s.db.ExecContext(ctx, query, committeeID, cycle); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	return nil
}

// PruneReports deletes reports older than the retention window. Retention
// is expressed in cycles: keepCycles=2 keeps the current and previous
// cycle. Returns the number of reports removed.
func (s *SQLiteStorage) PruneReports(ctx context.Context, currentCycle, keepCycles int) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateCycle(currentCycle); err != nil {
		return 0, err
	}
	if keepCycles < 1 {
		keepCycles = 1
	}

	// Cycles step by two years
	oldestKept := currentCycle - 2*(keepCycles-1)

	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE cycle < ?`, oldestKept)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned reports: %w", err)
	}

	return int(pruned), nil
}

const reportSelect = `
	SELECT committee_id, cycle, source_id, donor_count, txn_count,
		total_amount, mean, median, min, max,
		top10_ratio, whale_weight, nakamoto,
		top_donors, reconciliation, completed_at
	FROM reports`

// rowScanner abstracts sql.Row and sql.Rows for scanReport.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*model.Report, error) {
	var report model.Report
	var totalAmount, mean, median, minAmount, maxAmount string
	var topDonors, reconciliation string

	err := row.Scan(
		&report.CommitteeID,
		&report.Cycle,
		&report.SourceID,
		&report.DonorCount,
		&report.TxnCount,
		&totalAmount,
		&mean,
		&median,
		&minAmount,
		&maxAmount,
		&report.Top10Ratio,
		&report.WhaleWeight,
		&report.Nakamoto,
		&topDonors,
		&reconciliation,
		&report.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	if report.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("failed to parse total amount: %w", err)
	}
	if report.Mean, err = decimal.NewFromString(mean); err != nil {
		return nil, fmt.Errorf("failed to parse mean: %w", err)
	}
	if report.Median, err = decimal.NewFromString(median); err != nil {
		return nil, fmt.Errorf("failed to parse median: %w", err)
	}
	if report.Min, err = decimal.NewFromString(minAmount); err != nil {
		return nil, fmt.Errorf("failed to parse min: %w", err)
	}
	if report.Max, err = decimal.NewFromString(maxAmount); err != nil {
		return nil, fmt.Errorf("failed to parse max: %w", err)
	}
	if err := json.Unmarshal([]byte(topDonors), &report.TopDonors); err != nil {
		return nil, fmt.Errorf("failed to parse top donors: %w", err)
	}
	if err := json.Unmarshal([]byte(reconciliation), &report.Reconciliation); err != nil {
		return nil, fmt.Errorf("failed to parse reconciliation: %w", err)
	}

	return &report, nil
}
