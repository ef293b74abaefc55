package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const itemColumns = `id, url, title, description, raw_text, summary, key_insights,
	topics, quality, status, platform, project, is_read, starred, priority,
	captured_at, indexed_at, enriched_at`

// scanItem scans a row into an Item. The row must have all 18 columns in standard order.
func scanItem(scanner interface{ Scan(dest ...any) error }) (Item, error) {
	var it Item
	err := scanner.Scan(
		&it.ID, &it.URL, &it.Title, &it.Description, &it.RawText, &it.Summary,
		&it.KeyInsights, &it.Topics, &it.Quality, &it.Status, &it.Platform,
		&it.Project, &it.IsRead, &it.Starred, &it.Priority,
		&it.CapturedAt, &it.IndexedAt, &it.EnrichedAt,
	)
	return it, err
}

// InsertItemIfNew inserts a pending item for the URL, ignoring the conflict
// if a row for that URL already exists, then resolves the id by URL lookup.
// Racing inserts on the same URL converge to one row via the unique
// constraint. Returns (id, created).
func (d *DB) InsertItemIfNew(url string, platform, project *string) (int64, bool, error) {
	res, err := d.conn.Exec(`
		INSERT OR IGNORE INTO items (url, status, platform, project, captured_at)
		VALUES (?, ?, ?, ?, ?)
	`, url, StatusPending, platform, project, nowMillis())
	if err != nil {
		return 0, false, fmt.Errorf("inserting item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}

	// Resolve by URL regardless of whether the insert happened: covers both
	// the new and already-existed cases uniformly.
	var id int64
	if err := d.conn.QueryRow(`SELECT id FROM items WHERE url = ?`, url).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("resolving item by url: %w", err)
	}
	return id, n > 0, nil
}

// GetItem returns a single item by ID, or nil if not found.
func (d *DB) GetItem(id int64) (*Item, error) {
	row := d.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// GetItemByURL returns the item for a URL, or nil if not found.
func (d *DB) GetItemByURL(url string) (*Item, error) {
	row := d.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE url = ?`, url)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ItemFilter narrows ListItems. Zero values mean no constraint.
type ItemFilter struct {
	Status   string
	Platform string
	Project  string
	Limit    int
}

// ListItems returns items newest-captured first, narrowed by the filter.
func (d *DB) ListItems(f ItemFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, f.Platform)
	}
	if f.Project != "" {
		query += ` AND project = ?`
		args = append(args, f.Project)
	}
	query += ` ORDER BY captured_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(f.Limit)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ItemsByStatus returns up to limit items with the given status, oldest
// captured first. This is the enrichment queue's batch ordering.
func (d *DB) ItemsByStatus(status string, limit int) ([]Item, error) {
	rows, err := d.conn.Query(`
		SELECT `+itemColumns+` FROM items
		WHERE status = ? ORDER BY captured_at ASC LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// EnrichedSince returns up to limit enriched items whose enrichment
// timestamp is at or after the cutoff (Unix millis), oldest first.
func (d *DB) EnrichedSince(cutoffMillis int64, limit int) ([]Item, error) {
	rows, err := d.conn.Query(`
		SELECT `+itemColumns+` FROM items
		WHERE status = ? AND enriched_at IS NOT NULL AND enriched_at >= ?
		ORDER BY enriched_at ASC LIMIT ?
	`, StatusEnriched, cutoffMillis, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetItemIndexed stores the fetched title/description and advances the
// item to indexed.
func (d *DB) SetItemIndexed(id int64, title, description *string) error {
	_, err := d.conn.Exec(`
		UPDATE items SET title = ?, description = ?, status = ?, indexed_at = ?
		WHERE id = ?
	`, title, description, StatusIndexed, nowMillis(), id)
	return err
}

// SetItemEnriched stores extraction results and advances the item to enriched.
func (d *DB) SetItemEnriched(id int64, summary, keyInsights, topics string, quality float64) error {
	_, err := d.conn.Exec(`
		UPDATE items SET summary = ?, key_insights = ?, topics = ?, quality = ?,
			status = ?, enriched_at = ?
		WHERE id = ?
	`, summary, keyInsights, topics, quality, StatusEnriched, nowMillis(), id)
	return err
}

// SetItemStatus moves an item to the given status without touching other columns.
func (d *DB) SetItemStatus(id int64, status string) error {
	_, err := d.conn.Exec(`UPDATE items SET status = ? WHERE id = ?`, status, id)
	return err
}

// SetItemFlags updates the user-owned read/starred/priority flags. Nil
// pointers leave the corresponding flag untouched.
func (d *DB) SetItemFlags(id int64, isRead, starred, priority *bool) error {
	if isRead != nil {
		if _, err := d.conn.Exec(`UPDATE items SET is_read = ? WHERE id = ?`, *isRead, id); err != nil {
			return err
		}
	}
	if starred != nil {
		if _, err := d.conn.Exec(`UPDATE items SET starred = ? WHERE id = ?`, *starred, id); err != nil {
			return err
		}
	}
	if priority != nil {
		if _, err := d.conn.Exec(`UPDATE items SET priority = ? WHERE id = ?`, *priority, id); err != nil {
			return err
		}
	}
	return nil
}

// CountItemsByStatus returns a status → count map over all items.
func (d *DB) CountItemsByStatus() (map[string]int, error) {
	rows, err := d.conn.Query(`SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
