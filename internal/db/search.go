package db

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// BuildFTSQuery preprocesses a natural language query for FTS5.
// Splits on whitespace, removes stopwords and words < 3 chars, trims punctuation,
// joins with " OR ".
func BuildFTSQuery(query string) string {
	words := strings.Fields(query)
	var filtered []string
	for _, w := range words {
		// Trim non-letter/digit chars from both ends
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len(trimmed) < 3 {
			continue
		}
		if stopwords[strings.ToLower(trimmed)] {
			continue
		}
		filtered = append(filtered, trimmed)
	}
	return strings.Join(filtered, " OR ")
}

// SearchItems performs FTS5 keyword search over title/description/summary/topics.
// Returns empty slice if the preprocessed query is empty or if the FTS table
// doesn't exist.
func (d *DB) SearchItems(query string, limit int) ([]Item, error) {
	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		return []Item{}, nil
	}

	rows, err := d.conn.Query(`
		SELECT i.id, i.url, i.title, i.description, i.raw_text, i.summary,
		       i.key_insights, i.topics, i.quality, i.status, i.platform,
		       i.project, i.is_read, i.starred, i.priority,
		       i.captured_at, i.indexed_at, i.enriched_at
		FROM items i
		JOIN items_fts fts ON i.id = fts.rowid
		WHERE items_fts MATCH ?1
		ORDER BY rank LIMIT ?2
	`, ftsQuery, limit)
	if err != nil {
		// Gracefully handle missing FTS table
		if strings.Contains(err.Error(), "no such table") {
			return []Item{}, nil
		}
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
