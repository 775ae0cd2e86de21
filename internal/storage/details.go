package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/civicgraph/donorlens/internal/model"
)

// SaveContributions writes raw contribution records to the bulk detail
// store for ad hoc analytical queries. The detail store is additive and
// sits outside the checkpoint; engine correctness never depends on it.
func (s *SQLiteStorage) SaveContributions(ctx context.Context, committeeID string, cycle int, records []model.Contribution) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin detail transaction: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO contribution_details (
			id, committee_id, cycle, date, first_name, last_name,
			city, state, zip, amount, memoed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("Failed to roll back detail transaction", "error", rbErr)
		}
		return fmt.Errorf("failed to prepare detail insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			slog.Debug("Failed to close detail statement", "error", closeErr)
		}
	}()

	for _, record := range records {
		memoed := 0
		if record.Memoed {
			memoed = 1
		}
		if _, err := stmt.ExecContext(ctx,
			record.ID,
			committeeID,
			cycle,
			record.Date,
			record.FirstName,
			record.LastName,
			record.City,
			record.State,
			record.Zip,
			record.Amount.String(),
			memoed,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("Failed to roll back detail transaction", "error", rbErr)
			}
			return fmt.Errorf("failed to insert contribution detail: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contribution details: %w", err)
	}

	return nil
}

// CountContributions returns the number of raw records retained for a
// committee and cycle. Used by status reporting and tests.
func (s *SQLiteStorage) CountContributions(ctx context.Context, committeeID string, cycle int) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return 0, err
	}

	var count int
	query := `SELECT COUNT(*) FROM contribution_details WHERE committee_id = ? AND cycle = ?`
	if err := s.db.QueryRowContext(ctx, query, committeeID, cycle).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contribution details: %w", err)
	}

	return count, nil
}
