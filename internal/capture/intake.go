// Package capture is the ingestion boundary: it turns untrusted, possibly
// repeated capture requests into exactly one item row plus an audit event,
// and performs the lightweight synchronous title fetch.
package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/katori-hub/Cortex/internal/db"
)

// ErrInvalidURL rejects captures that are not absolute http(s) URLs. These
// are validation failures: logged, never retried.
var ErrInvalidURL = errors.New("capture: url must be absolute http(s)")

// Known capture sources. The set is open but bounded: anything unknown is
// folded to SourceUser rather than crashing ingestion.
const (
	SourceUser       = "user"
	SourceExtension  = "extension"
	SourceAutomation = "automation"
	SourceScheduler  = "scheduler"
)

// Request is one capture call from any entry point.
type Request struct {
	URL             string
	Title           string
	Source          string
	PlatformPayload map[string]string
}

// Intake writes items and capture events. Notify, when set, is called with
// the item ID after a successful capture so the caller can kick the
// enrichment queue without the intake blocking on it.
type Intake struct {
	db      *db.DB
	fetcher *Fetcher
	logger  *slog.Logger
	Notify  func(itemID int64)
}

// NewIntake creates a capture intake. A nil fetcher disables the synchronous
// title fetch (items stay pending); a nil logger selects slog.Default().
func NewIntake(d *db.DB, fetcher *Fetcher, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{db: d, fetcher: fetcher, logger: logger}
}

// NormalizeSource folds unknown source values to user.
func NormalizeSource(source string) string {
	switch source {
	case SourceUser, SourceExtension, SourceAutomation, SourceScheduler:
		return source
	default:
		return SourceUser
	}
}

// captureKey is the idempotency key for item_captured events: the same URL
// captured twice from one source collapses to one event, while two different
// sources produce two audit events against the one item row.
func captureKey(rawURL, source string) string {
	h := sha256.Sum256([]byte("item_captured|" + rawURL + "|" + source))
	return hex.EncodeToString(h[:])
}

// Capture ingests one URL. Racing captures of the same URL converge to one
// item via the store's unique constraint, not application locking.
func (in *Intake) Capture(ctx context.Context, req Request) (int64, error) {
	u, err := url.Parse(req.URL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		in.logger.Warn("rejected capture", "url", req.URL, "source", req.Source)
		return 0, fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
	}
	source := NormalizeSource(req.Source)

	var platform, project *string
	if v, ok := req.PlatformPayload["platform"]; ok && v != "" {
		platform = &v
	}
	if v, ok := req.PlatformPayload["project"]; ok && v != "" {
		project = &v
		if err := in.db.EnsureProject(v); err != nil {
			in.logger.Warn("ensuring project", "project", v, "error", err)
		}
	}

	itemID, created, err := in.db.InsertItemIfNew(req.URL, platform, project)
	if err != nil {
		return 0, err
	}

	payload := map[string]any{"url": req.URL}
	if req.Title != "" {
		payload["title"] = req.Title
	}
	if len(req.PlatformPayload) > 0 {
		payload["platform_payload"] = req.PlatformPayload
	}
	payloadJSON, _ := json.Marshal(payload)
	payloadStr := string(payloadJSON)

	if _, err := in.db.AppendEvent(db.Event{
		EventType:      db.EventItemCaptured,
		EntityType:     "item",
		EntityID:       fmt.Sprintf("%d", itemID),
		Payload:        &payloadStr,
		Source:         source,
		IdempotencyKey: captureKey(req.URL, source),
	}); err != nil {
		return 0, err
	}

	if created {
		in.indexItem(ctx, itemID, req.URL, req.Title, source)
	}

	if in.Notify != nil {
		in.Notify(itemID)
	}
	return itemID, nil
}

// indexItem runs the lightweight synchronous title/description fetch and
// advances the fresh item to indexed. A fetch failure is not a pipeline
// failure: extraction works from the URL alone, so the item advances with
// whatever metadata the caller supplied.
func (in *Intake) indexItem(ctx context.Context, itemID int64, rawURL, callerTitle, source string) {
	var title, description *string
	if callerTitle != "" {
		title = &callerTitle
	}

	if in.fetcher != nil {
		meta, err := in.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			in.logger.Debug("title fetch failed", "url", rawURL, "error", err)
		} else {
			if meta.Title != "" {
				title = &meta.Title
			}
			if meta.Description != "" {
				description = &meta.Description
			}
		}
	}

	if err := in.db.SetItemIndexed(itemID, title, description); err != nil {
		in.logger.Error("indexing item", "item_id", itemID, "error", err)
		return
	}
	if _, err := in.db.AppendEvent(db.Event{
		EventType:  db.EventItemIndexed,
		EntityType: "item",
		EntityID:   fmt.Sprintf("%d", itemID),
		Source:     source,
	}); err != nil {
		in.logger.Error("appending item_indexed event", "item_id", itemID, "error", err)
	}
}
