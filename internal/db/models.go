package db

import "time"

// Item statuses. pending → indexed → enriched is the normal path;
// partial, blocked and failed are terminal.
const (
	StatusPending  = "pending"
	StatusIndexed  = "indexed"
	StatusEnriched = "enriched"
	StatusPartial  = "partial"
	StatusBlocked  = "blocked"
	StatusFailed   = "failed"
)

// Task statuses.
const (
	TaskProposed = "proposed"
	TaskAccepted = "accepted"
	TaskDone     = "done"
	TaskDropped  = "dropped"
)

// Synthesis run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Event represents a row in the append-only events table.
type Event struct {
	ID             string  `json:"id"`
	EventType      string  `json:"event_type"`
	EntityType     string  `json:"entity_type"`
	EntityID       string  `json:"entity_id"`
	Payload        *string `json:"payload"` // JSON string
	Source         string  `json:"source"`
	IdempotencyKey string  `json:"idempotency_key"`
	CreatedAt      int64   `json:"created_at"` // Unix millis
}

// Item represents a row in the items table
type Item struct {
	ID          int64    `json:"id"`
	URL         string   `json:"url"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	RawText     *string  `json:"raw_text"`
	Summary     *string  `json:"summary"`
	KeyInsights *string  `json:"key_insights"` // JSON array
	Topics      *string  `json:"topics"`       // JSON array
	Quality     *float64 `json:"quality"`
	Status      string   `json:"status"`
	Platform    *string  `json:"platform"`
	Project     *string  `json:"project"`
	IsRead      bool     `json:"is_read"`
	Starred     bool     `json:"starred"`
	Priority    bool     `json:"priority"`
	CapturedAt  int64    `json:"captured_at"` // Unix millis
	IndexedAt   *int64   `json:"indexed_at"`
	EnrichedAt  *int64   `json:"enriched_at"`
}

// Connection represents an undirected similarity link between two items.
// Rows are canonicalized so that ItemA < ItemB.
type Connection struct {
	ID        int64   `json:"id"`
	ItemA     int64   `json:"item_id_a"`
	ItemB     int64   `json:"item_id_b"`
	Score     float64 `json:"score"`
	Dismissed bool    `json:"dismissed"`
	CreatedAt int64   `json:"created_at"`
}

// SynthesisRun represents one synthesis attempt.
type SynthesisRun struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	ItemCount     int     `json:"item_count"`
	Themes        *string `json:"themes"`         // JSON array
	Insights      *string `json:"insights"`       // JSON array
	ProposedTasks *string `json:"proposed_tasks"` // JSON array
	Error         *string `json:"error"`
	StartedAt     int64   `json:"started_at"`
	CompletedAt   *int64  `json:"completed_at"`
}

// Task represents a proposed or accepted follow-up task.
type Task struct {
	ID             int64   `json:"id"`
	SynthesisRunID *string `json:"synthesis_run_id"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
}

// Project represents a named grouping of items.
type Project struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	ItemCount int    `json:"item_count"`
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
