package db

import "testing"

func TestBuildFTSQuery_RemovesStopwords(t *testing.T) {
	got := BuildFTSQuery("the quantum computing")
	if got != "quantum OR computing" {
		t.Errorf("got %q", got)
	}
}

func TestBuildFTSQuery_TrimsPunctuation(t *testing.T) {
	got := BuildFTSQuery("rust, async!")
	if got != "rust OR async" {
		t.Errorf("got %q", got)
	}
}

func TestBuildFTSQuery_Empty(t *testing.T) {
	if got := BuildFTSQuery("the a an"); got != "" {
		t.Errorf("expected empty query, got %q", got)
	}
}

func TestSearchItems_MatchesTitle(t *testing.T) {
	d := openTestDB(t)
	id := seedItem(t, d, "https://example.com/a")
	seedItem(t, d, "https://example.com/b")

	title := "Distributed consensus algorithms"
	if err := d.SetItemIndexed(id, &title, nil); err != nil {
		t.Fatal(err)
	}

	items, err := d.SearchItems("consensus", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	if items[0].ID != id {
		t.Errorf("wrong item: %d", items[0].ID)
	}
}

func TestSearchItems_MatchesSummary(t *testing.T) {
	d := openTestDB(t)
	id := seedItem(t, d, "https://example.com/a")

	if err := d.SetItemEnriched(id, "Notes on vector embeddings", "[]", "[]", 0.9); err != nil {
		t.Fatal(err)
	}

	items, err := d.SearchItems("embeddings", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
}

func TestSearchItems_EmptyQuery(t *testing.T) {
	d := openTestDB(t)
	items, err := d.SearchItems("of", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no results, got %d", len(items))
	}
}
