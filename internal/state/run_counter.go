/*

This file manages the persistent global run counter. The counter survives
restarts so run numbers stay unique across the lifetime of a database.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureRunCounterTable creates the run_counter table if it doesn't exist
func ensureRunCounterTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS run_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_run INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		INSERT INTO run_counter (id, current_run)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := DB.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create run_counter table: %w", err)
	}

	log.Debug().Msg("Ensured run_counter table exists")
	return nil
}

// GetCurrentRunNumber retrieves the current run number from the database
func GetCurrentRunNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	if err := ensureRunCounterTable(); err != nil {
		return 0, err
	}

	query := `SELECT current_run FROM run_counter WHERE id = 1;`

	var currentRun int
	row := DB.QueryRow(query)
	err := row.Scan(&currentRun)

	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn().Msg("No run counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current run number: %w", err)
	}

	return currentRun, nil
}

// IncrementRunNumber increments the run counter and returns the new value
func IncrementRunNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	if err := ensureRunCounterTable(); err != nil {
		return 0, err
	}

	updateQuery := `
		UPDATE run_counter
		SET current_run = current_run + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_run;`

	var newRun int
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newRun)

	if err != nil {
		return 0, fmt.Errorf("failed to increment run number: %w", err)
	}

	log.Info().Int("runNumber", newRun).Msg("Incremented run counter")
	return newRun, nil
}
