package database

import (
	"database/sql"
	"fmt"

	. "github.com/themizzi/storecheck/internal/logging"
)

// Schema creates the attempts table and its indexes
const Schema = `
	CREATE TABLE IF NOT EXISTS attempts (
		id UUID PRIMARY KEY,
		suite_run_id UUID NOT NULL,
		scenario VARCHAR(255) NOT NULL,
		number INTEGER NOT NULL,
		status VARCHAR(50) NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		screenshot TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		UNIQUE (suite_run_id, scenario, number)
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_suite_run ON attempts(suite_run_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
	`

// RunMigrations creates the necessary database tables
func RunMigrations() error {
	if DB == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return Migrate(DB)
}

// Migrate applies Schema to db
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create attempts table: %w", err)
	}

	L_debug("database: migrations completed")
	return nil
}
