package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civicgraph/donorlens/internal/common"
	"github.com/civicgraph/donorlens/internal/model"
)

// SaveCheckpoint persists a checkpoint, replacing the entire stored value
// in one statement. The cursor lives inside the serialized checkpoint, so
// cursor advance and checkpoint save are inherently one atomic step.
func (s *SQLiteStorage) SaveCheckpoint(ctx context.Context, checkpoint *model.Checkpoint) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCheckpoint(checkpoint); err != nil {
		return err
	}

	checkpoint.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO checkpoints (committee_id, cycle, data, updated_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query,
		checkpoint.CommitteeID,
		checkpoint.Cycle,
		string(data),
		checkpoint.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// GetCheckpoint loads the checkpoint for a committee and cycle. Checkpoints
// written by earlier schema versions are upgraded in place on load.
func (s *SQLiteStorage) GetCheckpoint(ctx context.Context, committeeID string, cycle int) (*model.Checkpoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return nil, err
	}

	query := `SELECT data FROM checkpoints WHERE committee_id = ? AND cycle = ?`

	var data string
	err := s.db.QueryRowContext(ctx, query, committeeID, cycle).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint %s/%d: %w", committeeID, cycle, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	var checkpoint model.Checkpoint
	if err := json.Unmarshal([]byte(data), &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}

	checkpoint.Upgrade()

	return &checkpoint, nil
}

// DeleteCheckpoint removes the checkpoint for a committee and cycle.
// Deleting a checkpoint that does not exist is not an error.
func (s *SQLiteStorage) DeleteCheckpoint(ctx context.Context, committeeID string, cycle int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return err
	}

	query := `DELETE FROM checkpoints WHERE committee_id = ? AND cycle = ?`
	if _, err := s.db.ExecContext(ctx, query, committeeID, cycle); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	return nil
}
