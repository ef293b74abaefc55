package db

import (
	"database/sql"
	"fmt"
)

// scanRun scans a row into a SynthesisRun. The row must have all 9 columns in standard order.
func scanRun(scanner interface{ Scan(dest ...any) error }) (SynthesisRun, error) {
	var r SynthesisRun
	err := scanner.Scan(
		&r.ID, &r.Status, &r.ItemCount, &r.Themes, &r.Insights,
		&r.ProposedTasks, &r.Error, &r.StartedAt, &r.CompletedAt,
	)
	return r, err
}

// CreateSynthesisRun inserts a new run in status running.
func (d *DB) CreateSynthesisRun(id string) error {
	_, err := d.conn.Exec(`
		INSERT INTO synthesis_runs (id, status, started_at) VALUES (?, ?, ?)
	`, id, RunRunning, nowMillis())
	if err != nil {
		return fmt.Errorf("creating synthesis run: %w", err)
	}
	return nil
}

// LatestSynthesisRun returns the most recently started run, or nil if none.
func (d *DB) LatestSynthesisRun() (*SynthesisRun, error) {
	row := d.conn.QueryRow(`
		SELECT id, status, item_count, themes, insights, proposed_tasks, error, started_at, completed_at
		FROM synthesis_runs ORDER BY started_at DESC LIMIT 1
	`)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CompleteSynthesisRunEmpty marks a run completed with only an item count.
// Used when fewer than two items qualify and no external call is made.
func (d *DB) CompleteSynthesisRunEmpty(id string, itemCount int) error {
	_, err := d.conn.Exec(`
		UPDATE synthesis_runs SET status = ?, item_count = ?, completed_at = ?
		WHERE id = ?
	`, RunCompleted, itemCount, nowMillis(), id)
	return err
}

// CompleteSynthesisRun marks a run completed and, in the same transaction,
// stores the themes/insights/task JSON, inserts one proposed task per title,
// and returns the created task IDs in title order.
func (d *DB) CompleteSynthesisRun(id string, itemCount int, themesJSON, insightsJSON, tasksJSON string, taskTitles []string) ([]int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := nowMillis()
	if _, err := tx.Exec(`
		UPDATE synthesis_runs
		SET status = ?, item_count = ?, themes = ?, insights = ?, proposed_tasks = ?, completed_at = ?
		WHERE id = ?
	`, RunCompleted, itemCount, themesJSON, insightsJSON, tasksJSON, now, id); err != nil {
		return nil, fmt.Errorf("completing synthesis run: %w", err)
	}

	taskIDs := make([]int64, 0, len(taskTitles))
	for _, title := range taskTitles {
		res, err := tx.Exec(`
			INSERT INTO tasks (synthesis_run_id, title, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, title, TaskProposed, now, now)
		if err != nil {
			return nil, fmt.Errorf("inserting proposed task: %w", err)
		}
		taskID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		taskIDs = append(taskIDs, taskID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return taskIDs, nil
}

// FailSynthesisRun marks a run failed with the error message. A run is never
// left running indefinitely.
func (d *DB) FailSynthesisRun(id string, errMsg string) error {
	_, err := d.conn.Exec(`
		UPDATE synthesis_runs SET status = ?, error = ?, completed_at = ?
		WHERE id = ?
	`, RunFailed, errMsg, nowMillis(), id)
	return err
}
