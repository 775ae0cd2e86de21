package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civicgraph/donorlens/internal/common"
	"github.com/civicgraph/donorlens/internal/model"
)

// SaveCommittee inserts or updates a committee record.
func (s *SQLiteStorage) SaveCommittee(ctx context.Context, committee *model.Committee) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCommittee(committee); err != nil {
		return err
	}

	query := `
		INSERT INTO committees (id, name, state, category, source_id, cycle)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			category = excluded.category,
			source_id = excluded.source_id,
			cycle = excluded.cycle
	`

	if _, err := s.db.ExecContext(ctx, query,
		committee.ID,
		committee.Name,
		committee.State,
		committee.Category,
		committee.SourceID,
		committee.Cycle,
	); err != nil {
		return fmt.Errorf("failed to save committee: %w", err)
	}

	return nil
}

// GetCommittee retrieves a committee by ID.
func (s *SQLiteStorage) GetCommittee(ctx context.Context, id string) (*model.Committee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, state, category, source_id, cycle, created_at
		FROM committees WHERE id = ?
	`

	var committee model.Committee
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&committee.ID,
		&committee.Name,
		&committee.State,
		&committee.Category,
		&committee.SourceID,
		&committee.Cycle,
		&committee.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("committee %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get committee: %w", err)
	}

	return &committee, nil
}

// ListCommittees returns all known committees ordered by creation time.
func (s *SQLiteStorage) ListCommittees(ctx context.Context) ([]model.Committee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, state, category, source_id, cycle, created_at
		FROM committees ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list committees: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = closeErr
		}
	}()

	var committees []model.Committee
	for rows.Next() {
		var committee model.Committee
		if err := rows.Scan(
			&committee.ID,
			&committee.Name,
			&committee.State,
			&committee.Category,
			&committee.SourceID,
			&committee.Cycle,
			&committee.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan committee: %w", err)
		}
		committees = append(committees, committee)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate committees: %w", err)
	}

	return committees, nil
}
