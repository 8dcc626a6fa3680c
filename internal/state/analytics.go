// ./internal/state/analytics.go
package state

import (
	"fmt"
	"time"
)

// RunSummary is the per-run aggregate served to the dashboard.
type RunSummary struct {
	RunID        string     `json:"run_id"`
	RunNumber    int        `json:"run_number"`
	ScenarioName string     `json:"scenario_name"`
	Days         int        `json:"days"`
	Seed         int64      `json:"seed"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Steps        int        `json:"steps"`
	FinalTVL     float64    `json:"final_tvl"`
}

// ListRuns returns recent runs newest first, with their recorded step count
// and final total TVL.
func ListRuns(limit int) ([]RunSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT r.run_id, r.run_number, r.scenario_name, r.days, r.seed, r.started_at, r.completed_at,
		       COUNT(s.snapshot_id) AS steps,
		       COALESCE((
		           SELECT total_tvl FROM step_snapshots
		           WHERE run_id = r.run_id
		           ORDER BY timestep DESC LIMIT 1
		       ), 0) AS final_tvl
		FROM simulation_runs r
		LEFT JOIN step_snapshots s ON s.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var summary RunSummary
		if err := rows.Scan(&summary.RunID, &summary.RunNumber, &summary.ScenarioName,
			&summary.Days, &summary.Seed, &summary.StartedAt, &summary.CompletedAt,
			&summary.Steps, &summary.FinalTVL); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// GetLatestRunID returns the run_id of the most recently started run.
func GetLatestRunID() (string, error) {
	if DB == nil {
		return "", fmt.Errorf("database not initialized")
	}

	var runID string
	err := DB.QueryRow(`SELECT run_id FROM simulation_runs ORDER BY started_at DESC LIMIT 1;`).Scan(&runID)
	if err != nil {
		return "", fmt.Errorf("failed to get latest run: %w", err)
	}
	return runID, nil
}
