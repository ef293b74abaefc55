package db

import (
	"database/sql"
	"fmt"
)

// scanTask scans a row into a Task. The row must have all 6 columns in standard order.
func scanTask(scanner interface{ Scan(dest ...any) error }) (Task, error) {
	var t Task
	err := scanner.Scan(&t.ID, &t.SynthesisRunID, &t.Title, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// GetTask returns a task by ID, or nil if not found.
func (d *DB) GetTask(id int64) (*Task, error) {
	row := d.conn.QueryRow(`
		SELECT id, synthesis_run_id, title, status, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns tasks newest first, optionally narrowed to one status.
func (d *DB) ListTasks(status string, limit int) ([]Task, error) {
	query := `SELECT id, synthesis_run_id, title, status, created_at, updated_at FROM tasks`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetTaskStatus updates a task's status.
func (d *DB) SetTaskStatus(id int64, status string) error {
	switch status {
	case TaskProposed, TaskAccepted, TaskDone, TaskDropped:
	default:
		return fmt.Errorf("invalid task status: %s", status)
	}
	res, err := d.conn.Exec(`
		UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?
	`, status, nowMillis(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task not found: %d", id)
	}
	return nil
}

// EnsureProject inserts a project by name if it does not exist yet.
func (d *DB) EnsureProject(name string) error {
	_, err := d.conn.Exec(`
		INSERT OR IGNORE INTO projects (name, created_at) VALUES (?, ?)
	`, name, nowMillis())
	return err
}

// ListProjects returns all projects with their item counts, name order.
func (d *DB) ListProjects() ([]Project, error) {
	rows, err := d.conn.Query(`
		SELECT p.id, p.name, p.created_at,
		       (SELECT COUNT(*) FROM items i WHERE i.project = p.name)
		FROM projects p ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.ItemCount); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
