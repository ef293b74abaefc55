// Package synthesis runs the periodic cross-item synthesis pass: themes,
// insights and proposed tasks derived from recently enriched items.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/katori-hub/Cortex/internal/db"
	"github.com/katori-hub/Cortex/internal/llm"
)

// Synthesizer is the external synthesis service boundary. One batched call
// per run; partial synthesis is never attempted.
type Synthesizer interface {
	Synthesize(ctx context.Context, itemSummaries []string) (*llm.Synthesis, error)
}

const (
	windowDays = 7
	maxItems   = 50
)

// Scheduler debounces synthesis to once per calendar day. The single-flight
// guard is in-memory, like the enrichment queue's: sufficient because the
// process is single-instance.
type Scheduler struct {
	db     *db.DB
	synth  Synthesizer
	logger *slog.Logger
	now    func() time.Time

	running atomic.Bool
}

// NewScheduler creates a synthesis scheduler. A nil logger selects slog.Default().
func NewScheduler(d *db.DB, synth Synthesizer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{db: d, synth: synth, logger: logger, now: time.Now}
}

// RunIfNeeded runs synthesis unless the most recent run completed and was
// started today. This is a debounce, not a cron guarantee: a failed run does
// not block a retry later the same day.
func (s *Scheduler) RunIfNeeded(ctx context.Context) (*db.SynthesisRun, error) {
	last, err := s.db.LatestSynthesisRun()
	if err != nil {
		return nil, fmt.Errorf("reading latest synthesis run: %w", err)
	}
	if last != nil && last.Status == db.RunCompleted && sameDay(time.UnixMilli(last.StartedAt), s.now()) {
		return nil, nil
	}
	return s.Run(ctx)
}

// Run performs one synthesis pass unconditionally. Any error on the way
// marks the run failed with the message recorded; a run is never left
// running indefinitely.
func (s *Scheduler) Run(ctx context.Context) (*db.SynthesisRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	if err := s.db.CreateSynthesisRun(runID); err != nil {
		return nil, err
	}
	s.appendEvent(db.EventSynthesisStarted, runID, nil, db.IdempotencyKey(db.EventSynthesisStarted, "synthesis_run", runID, "system"))

	run, err := s.runInner(ctx, runID)
	if err != nil {
		if ferr := s.db.FailSynthesisRun(runID, err.Error()); ferr != nil {
			s.logger.Error("marking synthesis run failed", "run_id", runID, "error", ferr)
		}
		return nil, err
	}
	return run, nil
}

func (s *Scheduler) runInner(ctx context.Context, runID string) (*db.SynthesisRun, error) {
	cutoff := s.now().AddDate(0, 0, -windowDays).UnixMilli()
	items, err := s.db.EnrichedSince(cutoff, maxItems)
	if err != nil {
		return nil, fmt.Errorf("selecting enriched items: %w", err)
	}

	// Synthesis over 0-1 items is a no-op, not an error.
	if len(items) < 2 {
		if err := s.db.CompleteSynthesisRunEmpty(runID, len(items)); err != nil {
			return nil, err
		}
		s.logger.Info("synthesis skipped, not enough items", "run_id", runID, "item_count", len(items))
		return s.db.LatestSynthesisRun()
	}

	summaries := make([]string, 0, len(items))
	for _, it := range items {
		summaries = append(summaries, itemSummary(it))
	}

	syn, err := s.synth.Synthesize(ctx, summaries)
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	themes, _ := json.Marshal(syn.Themes)
	insights, _ := json.Marshal(syn.Insights)
	tasks, _ := json.Marshal(syn.ProposedTasks)
	taskIDs, err := s.db.CompleteSynthesisRun(runID, len(items), string(themes), string(insights), string(tasks), syn.ProposedTasks)
	if err != nil {
		return nil, err
	}

	// Each proposal is keyed per run+task: re-running synthesis must never
	// merge proposals from distinct runs.
	for i, taskID := range taskIDs {
		payload, _ := json.Marshal(map[string]any{"task_id": taskID, "title": syn.ProposedTasks[i]})
		payloadStr := string(payload)
		key := "run:" + runID + ":task:" + strconv.Itoa(i) + ":" + uuid.NewString()
		s.appendEvent(db.EventTaskProposed, strconv.FormatInt(taskID, 10), &payloadStr, key)
	}
	s.appendEvent(db.EventSynthesisCompleted, runID, nil, db.IdempotencyKey(db.EventSynthesisCompleted, "synthesis_run", runID, "system"))

	s.logger.Info("synthesis completed", "run_id", runID, "item_count", len(items), "tasks", len(taskIDs))
	return s.db.LatestSynthesisRun()
}

func (s *Scheduler) appendEvent(eventType, entityID string, payload *string, key string) {
	entityType := "synthesis_run"
	if eventType == db.EventTaskProposed {
		entityType = "task"
	}
	if _, err := s.db.AppendEvent(db.Event{
		EventType:      eventType,
		EntityType:     entityType,
		EntityID:       entityID,
		Payload:        payload,
		Source:         "system",
		IdempotencyKey: key,
	}); err != nil {
		s.logger.Error("appending event", "event_type", eventType, "error", err)
	}
}

// itemSummary serializes one item for the synthesis prompt.
func itemSummary(it db.Item) string {
	title := it.URL
	if it.Title != nil && *it.Title != "" {
		title = *it.Title
	}
	summary := ""
	if it.Summary != nil {
		summary = *it.Summary
	}
	return title + "\n" + summary
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
