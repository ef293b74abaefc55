package graph

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/katori-hub/Cortex/internal/db"
)

// DefaultThreshold is the minimum cosine similarity for an auto-generated
// link. Tuned tighter than ad-hoc search: a false positive link is worse
// than a missed one.
const DefaultThreshold = 0.70

// Engine discovers connections between items by comparing stored embeddings.
type Engine struct {
	db        *db.DB
	threshold float32
	logger    *slog.Logger
}

// NewEngine creates a connection-discovery engine. threshold <= 0 selects
// DefaultThreshold; a nil logger selects slog.Default().
func NewEngine(d *db.DB, threshold float32, logger *slog.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{db: d, threshold: threshold, logger: logger}
}

// DiscoverConnections compares the item's vector against every other stored
// vector and writes a connection for each candidate at or above the
// threshold. Pairs already linked in either direction, dismissed or not, are
// skipped outright. Each accepted pair is its own insert plus its own
// connection_found event; a conflict means another trigger already wrote the
// pair and is treated as success. Brute force O(N) per item, fine at the
// hundreds-to-low-thousands scale this targets.
func (e *Engine) DiscoverConnections(itemID int64) (int, error) {
	target, err := e.db.GetEmbedding(itemID)
	if err != nil {
		return 0, fmt.Errorf("loading embedding for item %d: %w", itemID, err)
	}
	if target == nil {
		return 0, nil
	}

	candidates, err := e.db.AllEmbeddings()
	if err != nil {
		return 0, fmt.Errorf("loading candidate embeddings: %w", err)
	}

	// Re-read at attempt time: a concurrent trigger's worst case is a
	// harmless duplicate-insert rejection, never a lost link.
	linked, err := e.db.LinkedItemIDs(itemID)
	if err != nil {
		return 0, fmt.Errorf("loading linked pairs for item %d: %w", itemID, err)
	}

	created := 0
	for _, c := range candidates {
		if c.ItemID == itemID || linked[c.ItemID] {
			continue
		}
		sim := CosineSimilarity(target, c.Embedding)
		if sim < e.threshold {
			continue
		}

		a, b := itemID, c.ItemID
		if a > b {
			a, b = b, a
		}
		inserted, err := e.db.InsertConnection(a, b, float64(sim))
		if err != nil {
			// One bad pair must not abort discovery for the rest.
			e.logger.Error("inserting connection", "item_a", a, "item_b", b, "error", err)
			continue
		}
		if !inserted {
			continue
		}
		created++

		pairKey := strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
		payload := fmt.Sprintf(`{"item_id_a":%d,"item_id_b":%d,"score":%.4f}`, a, b, sim)
		if _, err := e.db.AppendEvent(db.Event{
			EventType:      db.EventConnectionFound,
			EntityType:     "connection",
			EntityID:       pairKey,
			Payload:        &payload,
			Source:         "system",
			IdempotencyKey: db.IdempotencyKey(db.EventConnectionFound, "connection", pairKey, "system"),
		}); err != nil {
			e.logger.Error("appending connection_found event", "pair", pairKey, "error", err)
		}
	}
	return created, nil
}

// Dismiss marks a connection dismissed and records the user action as its
// own event. The row itself is never deleted.
func (e *Engine) Dismiss(connectionID int64) error {
	conn, err := e.db.GetConnection(connectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return fmt.Errorf("connection not found: %d", connectionID)
	}
	if err := e.db.DismissConnection(connectionID); err != nil {
		return err
	}

	pairKey := strconv.FormatInt(conn.ItemA, 10) + ":" + strconv.FormatInt(conn.ItemB, 10)
	_, err = e.db.AppendEvent(db.Event{
		EventType:  db.EventConnectionDismissed,
		EntityType: "connection",
		EntityID:   pairKey,
		Source:     "user",
	})
	return err
}
