// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS simulation_runs (
			run_id TEXT PRIMARY KEY,
			run_number INTEGER NOT NULL,
			scenario_name VARCHAR(255) NOT NULL,
			days INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			scenario JSONB,
			started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_simulation_runs_started ON simulation_runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS step_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES simulation_runs(run_id),
			timestep INTEGER NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			total_tvl DECIMAL(24, 8) NOT NULL,
			pools JSONB NOT NULL,
			agents JSONB NOT NULL,
			diagnostics JSONB,
			excess_budget_assets TEXT[],
			CONSTRAINT uq_step_snapshots_run_timestep UNIQUE (run_id, timestep)
		);
		CREATE INDEX IF NOT EXISTS idx_step_snapshots_run ON step_snapshots(run_id, timestep);
		CREATE INDEX IF NOT EXISTS idx_step_snapshots_timestamp ON step_snapshots(snapshot_timestamp DESC);

		-- Run counter table for persistent global run numbering
		CREATE TABLE IF NOT EXISTS run_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_run INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO run_counter (id, current_run)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
