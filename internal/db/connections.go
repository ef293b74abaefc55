package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// scanConnection scans a row into a Connection. The row must have all 6 columns in standard order.
func scanConnection(scanner interface{ Scan(dest ...any) error }) (Connection, error) {
	var c Connection
	err := scanner.Scan(&c.ID, &c.ItemA, &c.ItemB, &c.Score, &c.Dismissed, &c.CreatedAt)
	return c, err
}

// InsertConnection inserts a canonicalized (min, max) pair with its score.
// A conflict on the unique pair means the desired row already exists and is
// reported as inserted=false, not an error.
func (d *DB) InsertConnection(itemA, itemB int64, score float64) (bool, error) {
	if itemA == itemB {
		return false, fmt.Errorf("connection cannot link item %d to itself", itemA)
	}
	if itemA > itemB {
		itemA, itemB = itemB, itemA
	}

	res, err := d.conn.Exec(`
		INSERT OR IGNORE INTO connections (item_id_a, item_id_b, score, dismissed, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, itemA, itemB, score, nowMillis())
	if err != nil {
		// A racing writer can still surface a constraint error depending on
		// timing; the pair existing is the desired state either way.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return false, nil
		}
		return false, fmt.Errorf("inserting connection (%d,%d): %w", itemA, itemB, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetConnection returns a connection by ID, or nil if not found.
func (d *DB) GetConnection(id int64) (*Connection, error) {
	row := d.conn.QueryRow(`
		SELECT id, item_id_a, item_id_b, score, dismissed, created_at
		FROM connections WHERE id = ?
	`, id)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConnectionsForItem returns all connections touching an item, dismissed or
// not, highest score first.
func (d *DB) ConnectionsForItem(itemID int64) ([]Connection, error) {
	rows, err := d.conn.Query(`
		SELECT id, item_id_a, item_id_b, score, dismissed, created_at
		FROM connections WHERE item_id_a = ? OR item_id_b = ?
		ORDER BY score DESC
	`, itemID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// LinkedItemIDs returns the set of item IDs already linked to the given item
// in either direction, regardless of dismissed state. Discovery skips these
// outright, so a dismissed pair is never reconsidered.
func (d *DB) LinkedItemIDs(itemID int64) (map[int64]bool, error) {
	rows, err := d.conn.Query(`
		SELECT item_id_a, item_id_b FROM connections
		WHERE item_id_a = ? OR item_id_b = ?
	`, itemID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	linked := map[int64]bool{}
	for rows.Next() {
		var a, b int64
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		if a == itemID {
			linked[b] = true
		} else {
			linked[a] = true
		}
	}
	return linked, rows.Err()
}

// HasConnections answers whether an item is linked to anything. This is the
// derived "connected" flag: it is never stored on the item row.
func (d *DB) HasConnections(itemID int64) (bool, error) {
	var n int
	err := d.conn.QueryRow(`
		SELECT COUNT(*) FROM connections WHERE item_id_a = ? OR item_id_b = ?
	`, itemID, itemID).Scan(&n)
	return n > 0, err
}

// DismissConnection marks a connection dismissed. The row is kept: the
// similarity evidence survives for audit and undo.
func (d *DB) DismissConnection(id int64) error {
	res, err := d.conn.Exec(`UPDATE connections SET dismissed = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("connection not found: %d", id)
	}
	return nil
}
