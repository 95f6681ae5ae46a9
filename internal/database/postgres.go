package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/themizzi/uiverify/internal/config"
	_ "github.com/lib/pq"
)

var DB *sql.DB

// Connect opens the run history database described by pgConfig
func Connect(pgConfig *config.PostgresConfig) error {
	if pgConfig == nil {
		return config.ErrPostgresNotConfigured
	}

	var err error
	DB, err = sql.Open("postgres", pgConfig.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(2)
	DB.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err = DB.Ping(); err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
