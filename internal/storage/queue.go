package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrQueueEmpty signals that no committees are pending for the current
// cycle. The scheduler performs no further work when it sees this.
var ErrQueueEmpty = errors.New("queue is empty")

// Enqueue appends a committee to the pending worklist. A committee appears
// at most once; enqueueing an already-queued committee is a no-op.
func (s *SQLiteStorage) Enqueue(ctx context.Context, committeeID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return err
	}

	query := `INSERT OR IGNORE INTO queue (committee_id) VALUES (?)`
	if _, err := s.db.ExecContext(ctx, query, committeeID); err != nil {
		return fmt.Errorf("failed to enqueue committee: %w", err)
	}

	return nil
}

// QueueHead returns the committee at the head of the worklist without
// removing it. The head only moves once its final report exists.
func (s *SQLiteStorage) QueueHead(ctx context.Context) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	query := `SELECT committee_id FROM queue ORDER BY position LIMIT 1`

	var committeeID string
	err := s.db.QueryRowContext(ctx, query).Scan(&committeeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to read queue head: %w", err)
	}

	return committeeID, nil
}

// Dequeue removes a committee from the worklist.
func (s *SQLiteStorage) Dequeue(ctx context.Context, committeeID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(committeeID, "committeeID"); err != nil {
		return err
	}

	query := `DELETE FROM queue WHERE committee_id = ?`
	if _, err := s.db.ExecContext(ctx, query, committeeID); err != nil {
		return fmt.Errorf("failed to dequeue committee: %w", err)
	}

	return nil
}

// ListQueue returns pending committee IDs in processing order.
func (s *SQLiteStorage) ListQueue(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT committee_id FROM queue ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = closeErr
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue: %w", err)
	}

	return ids, nil
}
