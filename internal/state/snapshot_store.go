// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/avail-network/stakesim/internal/types"
)

// RegisterRun inserts the run row that step snapshots reference. The scenario
// document is stored as JSONB for later audit of what the run was configured
// with.
func RegisterRun(runID string, scenarioName string, days int, seed int64, scenario any) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	runNumber, err := IncrementRunNumber()
	if err != nil {
		return 0, err
	}

	scenarioJSON, err := json.Marshal(scenario)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal scenario: %w", err)
	}

	query := `
		INSERT INTO simulation_runs (run_id, run_number, scenario_name, days, seed, scenario)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	if _, err := DB.Exec(query, runID, runNumber, scenarioName, days, seed, scenarioJSON); err != nil {
		return 0, fmt.Errorf("failed to register run: %w", err)
	}

	log.Info().
		Str("run_id", runID).
		Int("run_number", runNumber).
		Str("scenario", scenarioName).
		Msg("Run registered in database")
	return runNumber, nil
}

// CompleteRun stamps the run's completion time.
func CompleteRun(runID string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := DB.Exec(`UPDATE simulation_runs SET completed_at = CURRENT_TIMESTAMP WHERE run_id = $1;`, runID)
	if err != nil {
		return fmt.Errorf("failed to mark run complete: %w", err)
	}
	return nil
}

// SaveStepSnapshot saves a complete step snapshot to the database.
func SaveStepSnapshot(snapshot types.StepSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	poolsJSON, err := json.Marshal(snapshot.Pools)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal pools: %w", err)
	}
	agentsJSON, err := json.Marshal(snapshot.Agents)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal agents: %w", err)
	}
	diagnosticsJSON, err := json.Marshal(snapshot.Diagnostics)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	// Excess-budget assets are denormalized into a text array so dashboards
	// can filter affected pools without unpacking the JSONB.
	excessAssets := make([]string, 0, len(snapshot.Diagnostics.ExcessBudget))
	for _, signal := range snapshot.Diagnostics.ExcessBudget {
		excessAssets = append(excessAssets, string(signal.Asset))
	}

	query := `
		INSERT INTO step_snapshots (
			run_id, timestep, snapshot_timestamp, total_tvl,
			pools, agents, diagnostics, excess_budget_assets
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.RunID, snapshot.Timestep, snapshot.Timestamp, snapshot.TotalTVL,
		poolsJSON, agentsJSON, diagnosticsJSON, pq.Array(excessAssets),
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save step snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Int("timestep", snapshot.Timestep).
		Float64("total_tvl", snapshot.TotalTVL).
		Msg("Step snapshot saved to database")

	return snapshotID, nil
}

// Recorder adapts the snapshot store to the engine's per-step callback.
type Recorder struct{}

// RecordStep persists one snapshot, failing the run if the write fails.
func (Recorder) RecordStep(snapshot types.StepSnapshot) error {
	_, err := SaveStepSnapshot(snapshot)
	return err
}

// StoredSnapshot is the row shape returned by the read queries.
type StoredSnapshot struct {
	SnapshotID int64               `json:"snapshot_id"`
	RunID      string              `json:"run_id"`
	Timestep   int                 `json:"timestep"`
	Timestamp  time.Time           `json:"timestamp"`
	TotalTVL   float64             `json:"total_tvl"`
	Snapshot   types.StepSnapshot  `json:"snapshot"`
}

// GetRunSnapshots loads snapshots for a run ordered by timestep, up to limit
// rows (0 means no limit).
func GetRunSnapshots(runID string, limit int) ([]StoredSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, run_id, timestep, snapshot_timestamp, total_tvl, pools, agents, diagnostics
		FROM step_snapshots
		WHERE run_id = $1
		ORDER BY timestep ASC
	`
	args := []any{runID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []StoredSnapshot
	for rows.Next() {
		var (
			stored          StoredSnapshot
			poolsJSON       []byte
			agentsJSON      []byte
			diagnosticsJSON []byte
		)
		if err := rows.Scan(&stored.SnapshotID, &stored.RunID, &stored.Timestep,
			&stored.Timestamp, &stored.TotalTVL, &poolsJSON, &agentsJSON, &diagnosticsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		stored.Snapshot.RunID = stored.RunID
		stored.Snapshot.Timestep = stored.Timestep
		stored.Snapshot.Timestamp = stored.Timestamp
		stored.Snapshot.TotalTVL = stored.TotalTVL
		if err := json.Unmarshal(poolsJSON, &stored.Snapshot.Pools); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pools: %w", err)
		}
		if err := json.Unmarshal(agentsJSON, &stored.Snapshot.Agents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agents: %w", err)
		}
		if len(diagnosticsJSON) > 0 {
			if err := json.Unmarshal(diagnosticsJSON, &stored.Snapshot.Diagnostics); err != nil {
				return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
			}
		}
		out = append(out, stored)
	}
	return out, rows.Err()
}
