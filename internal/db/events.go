package db

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Event types emitted by the pipeline.
const (
	EventItemCaptured        = "item_captured"
	EventItemIndexed         = "item_indexed"
	EventItemExtracted       = "item_extracted"
	EventItemEmbedded        = "item_embedded"
	EventItemFailed          = "item_failed"
	EventItemUpdated         = "item_updated"
	EventConnectionFound     = "connection_found"
	EventConnectionDismissed = "connection_dismissed"
	EventSynthesisStarted    = "synthesis_run_started"
	EventSynthesisCompleted  = "synthesis_run_completed"
	EventTaskProposed        = "task_proposed"
	EventTaskUpdated         = "task_updated"
)

// IdempotencyKey derives the default deterministic key for an event: retried
// deliveries of the same logical transition collapse to one row. Callers that
// legitimately need several events of the same type for one entity (repeated
// synthesis runs, per-source capture audit) supply their own key instead.
func IdempotencyKey(eventType, entityType, entityID, source string) string {
	h := sha256.Sum256([]byte(eventType + "|" + entityType + "|" + entityID + "|" + source))
	return hex.EncodeToString(h[:])
}

// AppendEvent inserts an event into the append-only log. A duplicate
// idempotency key means the transition was already recorded: the insert is
// ignored and inserted=false is returned, never an error. Events are never
// updated or deleted; no other method in this package touches the table.
func (d *DB) AppendEvent(e Event) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.IdempotencyKey == "" {
		e.IdempotencyKey = IdempotencyKey(e.EventType, e.EntityType, e.EntityID, e.Source)
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = nowMillis()
	}

	res, err := d.conn.Exec(`
		INSERT OR IGNORE INTO events
			(id, event_type, entity_type, entity_id, payload, source, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.EventType, e.EntityType, e.EntityID, e.Payload, e.Source, e.IdempotencyKey, e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("appending event %s: %w", e.EventType, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// scanEvent scans a row into an Event. The row must have all 8 columns in standard order.
func scanEvent(scanner interface{ Scan(dest ...any) error }) (Event, error) {
	var e Event
	err := scanner.Scan(
		&e.ID, &e.EventType, &e.EntityType, &e.EntityID,
		&e.Payload, &e.Source, &e.IdempotencyKey, &e.CreatedAt,
	)
	return e, err
}

// EventsForEntity returns all events for an entity, oldest first.
func (d *DB) EventsForEntity(entityType, entityID string) ([]Event, error) {
	rows, err := d.conn.Query(`
		SELECT id, event_type, entity_type, entity_id, payload, source, idempotency_key, created_at
		FROM events WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at ASC, id ASC
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentEvents returns the newest events, most recent first.
func (d *DB) RecentEvents(limit int) ([]Event, error) {
	rows, err := d.conn.Query(`
		SELECT id, event_type, entity_type, entity_id, payload, source, idempotency_key, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents returns the total number of events in the log.
func (d *DB) CountEvents() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}
