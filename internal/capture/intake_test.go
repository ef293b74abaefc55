package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/katori-hub/Cortex/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestCapture_RejectsInvalidURL(t *testing.T) {
	d := openTestDB(t)
	in := NewIntake(d, nil, nil)

	for _, bad := range []string{"", "not a url", "ftp://example.com/x", "/relative/path", "example.com"} {
		_, err := in.Capture(context.Background(), Request{URL: bad, Source: "user"})
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("url %q: expected ErrInvalidURL, got %v", bad, err)
		}
	}

	n, _ := d.CountEvents()
	if n != 0 {
		t.Errorf("rejected captures produced %d events", n)
	}
}

func TestCapture_SameURLTwiceOneItem(t *testing.T) {
	d := openTestDB(t)
	in := NewIntake(d, nil, nil)

	id1, err := in.Capture(context.Background(), Request{URL: "https://example.com/a", Source: "user"})
	if err != nil {
		t.Fatalf("first capture: %v", err)
	}
	id2, err := in.Capture(context.Background(), Request{URL: "https://example.com/a", Source: "user"})
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if id1 != id2 {
		t.Errorf("ids diverged: %d vs %d", id1, id2)
	}

	items, err := d.ListItems(db.ItemFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}

	// Same URL, same source: one audit event.
	events, err := d.EventsForEntity("item", strconv.FormatInt(id1, 10))
	if err != nil {
		t.Fatal(err)
	}
	captured := 0
	for _, e := range events {
		if e.EventType == db.EventItemCaptured {
			captured++
		}
	}
	if captured != 1 {
		t.Errorf("expected 1 item_captured event, got %d", captured)
	}
}

func TestCapture_TwoSourcesTwoEvents(t *testing.T) {
	d := openTestDB(t)
	in := NewIntake(d, nil, nil)

	id, err := in.Capture(context.Background(), Request{URL: "https://example.com/a", Source: "user"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.Capture(context.Background(), Request{URL: "https://example.com/a", Source: "extension"}); err != nil {
		t.Fatal(err)
	}

	items, _ := d.ListItems(db.ItemFilter{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	events, err := d.EventsForEntity("item", strconv.FormatInt(id, 10))
	if err != nil {
		t.Fatal(err)
	}
	captured := 0
	for _, e := range events {
		if e.EventType == db.EventItemCaptured {
			captured++
		}
	}
	if captured != 2 {
		t.Errorf("expected 2 item_captured events for 2 sources, got %d", captured)
	}
}

func TestCapture_UnknownSourceFoldsToUser(t *testing.T) {
	d := openTestDB(t)
	in := NewIntake(d, nil, nil)

	id, err := in.Capture(context.Background(), Request{URL: "https://example.com/a", Source: "martian"})
	if err != nil {
		t.Fatalf("unknown source crashed ingestion: %v", err)
	}

	events, _ := d.EventsForEntity("item", strconv.FormatInt(id, 10))
	if len(events) == 0 {
		t.Fatal("no events recorded")
	}
	if events[0].Source != SourceUser {
		t.Errorf("source = %s, want user", events[0].Source)
	}
}

func TestCapture_FetchPopulatesTitleAndIndexes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Example Page</title>
			<meta name="description" content="A test page"></head><body>hi</body></html>`))
	}))
	defer srv.Close()

	d := openTestDB(t)
	in := NewIntake(d, NewFetcher(), nil)

	id, err := in.Capture(context.Background(), Request{URL: srv.URL + "/a", Source: "user"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item, err := d.GetItem(id)
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != db.StatusIndexed {
		t.Errorf("status = %s, want indexed", item.Status)
	}
	if item.Title == nil || *item.Title != "Example Page" {
		t.Errorf("title = %v, want Example Page", item.Title)
	}
	if item.Description == nil || *item.Description != "A test page" {
		t.Errorf("description = %v", item.Description)
	}

	events, _ := d.EventsForEntity("item", strconv.FormatInt(id, 10))
	var indexed bool
	for _, e := range events {
		if e.EventType == db.EventItemIndexed {
			indexed = true
		}
	}
	if !indexed {
		t.Error("item_indexed event not recorded")
	}
}

func TestCapture_FetchFailureStillIndexes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := openTestDB(t)
	in := NewIntake(d, NewFetcher(), nil)

	id, err := in.Capture(context.Background(), Request{URL: srv.URL + "/a", Title: "Caller Title", Source: "user"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item, _ := d.GetItem(id)
	if item.Status != db.StatusIndexed {
		t.Errorf("status = %s, want indexed despite fetch failure", item.Status)
	}
	if item.Title == nil || *item.Title != "Caller Title" {
		t.Errorf("caller title hint lost: %v", item.Title)
	}
}

func TestCapture_PlatformPayloadLifted(t *testing.T) {
	d := openTestDB(t)
	in := NewIntake(d, nil, nil)

	id, err := in.Capture(context.Background(), Request{
		URL:    "https://example.com/a",
		Source: "extension",
		PlatformPayload: map[string]string{
			"platform": "safari",
			"project":  "reading",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	item, _ := d.GetItem(id)
	if item.Platform == nil || *item.Platform != "safari" {
		t.Errorf("platform = %v", item.Platform)
	}
	if item.Project == nil || *item.Project != "reading" {
		t.Errorf("project = %v", item.Project)
	}

	projects, err := d.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Name != "reading" {
		t.Errorf("project row not ensured: %v", projects)
	}
}

func TestCapture_NotifyCalled(t *testing.T) {
	d := openTestDB(t)
	in := NewIntake(d, nil, nil)

	var notified int64
	in.Notify = func(itemID int64) { notified = itemID }

	id, err := in.Capture(context.Background(), Request{URL: "https://example.com/a", Source: "user"})
	if err != nil {
		t.Fatal(err)
	}
	if notified != id {
		t.Errorf("notify got %d, want %d", notified, id)
	}
}

func TestNormalizeSource(t *testing.T) {
	cases := map[string]string{
		"user":       SourceUser,
		"extension":  SourceExtension,
		"automation": SourceAutomation,
		"scheduler":  SourceScheduler,
		"":           SourceUser,
		"whatever":   SourceUser,
	}
	for in, want := range cases {
		if got := NormalizeSource(in); got != want {
			t.Errorf("NormalizeSource(%q) = %q, want %q", in, got, want)
		}
	}
}
