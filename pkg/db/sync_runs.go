package db

import (
	"fmt"
	"time"
)

// SyncRun represents one committed sync run.
type SyncRun struct {
	RunID       string
	BudgetID    int64
	StartedAt   time.Time
	FinishedAt  time.Time
	Creates     int
	Updates     int
	Deletes     int
	Adjustments int
}

// InsertSyncRun records a committed run.
func (s *Store) InsertSyncRun(q Querier, run SyncRun) error {
	query := `
		INSERT INTO sync_runs (run_id, budget_id, started_at, finished_at, creates, updates, deletes, adjustments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.Exec(query,
		run.RunID,
		run.BudgetID,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Creates,
		run.Updates,
		run.Deletes,
		run.Adjustments,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// ListSyncRuns retrieves the most recent runs of a budget, newest first.
func (s *Store) ListSyncRuns(budgetID int64, limit int) ([]SyncRun, error) {
	query := `
		SELECT run_id, budget_id, started_at, finished_at, creates, updates, deletes, adjustments
		FROM sync_runs
		WHERE budget_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(query, budgetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		if err := rows.Scan(
			&run.RunID,
			&run.BudgetID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Creates,
			&run.Updates,
			&run.Deletes,
			&run.Adjustments,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
