package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Schema creates the runs table. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id UUID PRIMARY KEY,
	scenario_name VARCHAR(255) NOT NULL,
	target TEXT NOT NULL,
	engine VARCHAR(50) NOT NULL,
	status VARCHAR(50) NOT NULL,
	failed_step INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	artifacts TEXT[] NOT NULL DEFAULT '{}',
	started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Migrate applies Schema to db
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database connection not initialized")
	}
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// RunMigrations creates the necessary tables on the global connection
func RunMigrations() error {
	if err := Migrate(DB); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
