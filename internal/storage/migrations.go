package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS committees (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					state TEXT,
					category TEXT,
					source_id TEXT,
					cycle INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS checkpoints (
					committee_id TEXT NOT NULL,
					cycle INTEGER NOT NULL,
					data TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (committee_id, cycle)
				)`,

				`CREATE TABLE IF NOT EXISTS reports (
					committee_id TEXT NOT NULL,
					cycle INTEGER NOT NULL,
					source_id TEXT NOT NULL,
					donor_count INTEGER NOT NULL,
					txn_count INTEGER NOT NULL,
					total_amount TEXT NOT NULL,
					mean TEXT NOT NULL,
					median TEXT NOT NULL,
					min TEXT NOT NULL,
					max TEXT NOT NULL,
					top10_ratio REAL NOT NULL,
					whale_weight REAL NOT NULL,
					nakamoto INTEGER NOT NULL,
					top_donors TEXT NOT NULL,
					reconciliation TEXT NOT NULL,
					completed_at DATETIME NOT NULL,
					PRIMARY KEY (committee_id, cycle)
				)`,

				`CREATE TABLE IF NOT EXISTS queue (
					position INTEGER PRIMARY KEY AUTOINCREMENT,
					committee_id TEXT UNIQUE NOT NULL
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add bulk contribution detail store",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS contribution_details (
					id TEXT PRIMARY KEY,
					committee_id TEXT NOT NULL,
					cycle INTEGER NOT NULL,
					date DATETIME,
					first_name TEXT,
					last_name TEXT,
					city TEXT,
					state TEXT,
					zip TEXT,
					amount TEXT NOT NULL,
					memoed INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_details_committee ON contribution_details(committee_id, cycle)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index reports by cycle for retention pruning",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_reports_cycle ON reports(cycle)`)
			return err
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("Failed to roll back migration", "version", migration.Version, "error", rbErr)
			}
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		// PRAGMA does not accept bound parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("Failed to roll back migration", "version", migration.Version, "error", rbErr)
			}
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, expected %d", finalVersion, ExpectedSchemaVersion)
	}

	return nil
}
