// Package enrich drives the asynchronous pipeline stage that turns indexed
// items into enriched ones: LLM extraction, embedding, and the hand-off to
// connection discovery.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/katori-hub/Cortex/internal/db"
	"github.com/katori-hub/Cortex/internal/graph"
	"github.com/katori-hub/Cortex/internal/llm"
)

// Extractor is the external extraction service boundary.
type Extractor interface {
	Extract(ctx context.Context, title, url, rawText string) (*llm.Extraction, error)
}

// Embedder is the external embedding service boundary.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Options tune a Queue. Zero values select the defaults.
type Options struct {
	BatchSize int           // items per run (default 10)
	ItemDelay time.Duration // pause between items; 4s fits a 15 RPM budget
	Cooldown  time.Duration // pause after a quota error (default 5m)
}

func (o *Options) defaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.ItemDelay <= 0 {
		o.ItemDelay = 4 * time.Second
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 5 * time.Minute
	}
}

// Stats summarizes one queue run.
type Stats struct {
	Processed int
	Enriched  int
	Failed    int
	Skipped   bool // run was a no-op (already running or cooling down)
}

// Queue is a single-flight batch worker. ProcessQueue is safe to invoke
// concurrently: a re-entrant call while one run is in flight is a no-op.
// The guard is in-memory because the system is single-process by design;
// a multi-process deployment would need a leased row in the store instead.
type Queue struct {
	db      *db.DB
	extract Extractor
	embed   Embedder
	engine  *graph.Engine
	opts    Options
	logger  *slog.Logger

	running       atomic.Bool
	cooldownUntil atomic.Int64 // Unix millis
}

// NewQueue creates an enrichment queue. A nil logger selects slog.Default().
func NewQueue(d *db.DB, extract Extractor, embed Embedder, engine *graph.Engine, opts Options, logger *slog.Logger) *Queue {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{db: d, extract: extract, embed: embed, engine: engine, opts: opts, logger: logger}
}

// ProcessQueue runs one enrichment batch: up to BatchSize indexed items,
// oldest first, strictly sequentially with a fixed delay between items to
// stay inside the downstream requests-per-minute quota. Every per-item step
// is independently contained so one bad item never stalls the batch.
func (q *Queue) ProcessQueue(ctx context.Context) (Stats, error) {
	if !q.running.CompareAndSwap(false, true) {
		return Stats{Skipped: true}, nil
	}
	defer q.running.Store(false)

	if until := q.cooldownUntil.Load(); until > time.Now().UnixMilli() {
		q.logger.Info("enrichment cooling down", "until", time.UnixMilli(until))
		return Stats{Skipped: true}, nil
	}

	items, err := q.db.ItemsByStatus(db.StatusIndexed, q.opts.BatchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching enrichment batch: %w", err)
	}

	var stats Stats
	for i, item := range items {
		if i > 0 {
			select {
			case <-time.After(q.opts.ItemDelay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}
		stats.Processed++

		err := q.enrichItem(ctx, item)
		switch {
		case err == nil:
			stats.Enriched++
		case errors.Is(err, llm.ErrQuotaExceeded):
			// Not the item's fault: leave it indexed for the next run and
			// pause the whole queue.
			q.cooldownUntil.Store(time.Now().Add(q.opts.Cooldown).UnixMilli())
			q.logger.Warn("quota exceeded, pausing queue", "cooldown", q.opts.Cooldown)
			return stats, nil
		case errors.Is(err, llm.ErrMissingCredential):
			// Operator configuration problem: abort the run, no per-item penalty.
			return stats, err
		default:
			stats.Failed++
			q.markPartial(item, err)
		}
	}
	return stats, nil
}

// enrichItem runs extraction, then embedding, then connection discovery for
// one item. Extraction failure is returned for classification; embedding and
// discovery failures never roll back the committed extraction.
func (q *Queue) enrichItem(ctx context.Context, item db.Item) error {
	title := ""
	if item.Title != nil {
		title = *item.Title
	}
	rawText := ""
	if item.RawText != nil {
		rawText = *item.RawText
	}

	ex, err := q.extract.Extract(ctx, title, item.URL, rawText)
	if err != nil {
		return err
	}

	insights, _ := json.Marshal(ex.KeyInsights)
	topics, _ := json.Marshal(ex.Topics)
	if err := q.db.SetItemEnriched(item.ID, ex.Summary, string(insights), string(topics), ex.Quality); err != nil {
		return fmt.Errorf("persisting extraction: %w", err)
	}
	entityID := strconv.FormatInt(item.ID, 10)
	q.appendEvent(db.EventItemExtracted, entityID, nil)

	// Embedding is best-effort past this point: the extraction is committed
	// and must survive an embedding failure.
	input := title + "\n" + ex.Summary
	vec, err := q.embed.Embed(ctx, input)
	if err != nil {
		q.logger.Error("embedding failed", "item_id", item.ID, "error", err)
		return nil
	}
	if err := q.db.UpsertEmbedding(item.ID, graph.Normalize(vec), q.embed.Model()); err != nil {
		q.logger.Error("storing embedding", "item_id", item.ID, "error", err)
		return nil
	}
	q.appendEvent(db.EventItemEmbedded, entityID, nil)

	// Fire-and-forget hand-off: a discovery failure is retried by future
	// runs, never a blocking dependency of enrichment.
	if q.engine != nil {
		if _, err := q.engine.DiscoverConnections(item.ID); err != nil {
			q.logger.Error("connection discovery failed", "item_id", item.ID, "error", err)
		}
	}
	return nil
}

// markPartial records a permanent per-item failure: explicit terminal status
// plus an immutable event, never a silently stuck item.
func (q *Queue) markPartial(item db.Item, cause error) {
	q.logger.Warn("enrichment failed", "item_id", item.ID, "url", item.URL, "error", cause)
	if err := q.db.SetItemStatus(item.ID, db.StatusPartial); err != nil {
		q.logger.Error("marking item partial", "item_id", item.ID, "error", err)
		return
	}
	payload, _ := json.Marshal(map[string]string{"error": cause.Error()})
	payloadStr := string(payload)
	q.appendEvent(db.EventItemFailed, strconv.FormatInt(item.ID, 10), &payloadStr)
}

func (q *Queue) appendEvent(eventType, entityID string, payload *string) {
	if _, err := q.db.AppendEvent(db.Event{
		EventType:  eventType,
		EntityType: "item",
		EntityID:   entityID,
		Payload:    payload,
		Source:     "system",
	}); err != nil {
		q.logger.Error("appending event", "event_type", eventType, "entity_id", entityID, "error", err)
	}
}
