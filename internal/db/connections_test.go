package db

import "testing"

func TestInsertConnection_Canonicalizes(t *testing.T) {
	d := openTestDB(t)
	a := seedItem(t, d, "https://example.com/a")
	b := seedItem(t, d, "https://example.com/b")

	// Insert with the pair reversed; the row must still satisfy a < b.
	inserted, err := d.InsertConnection(b, a, 0.75)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert")
	}

	conns, err := d.ConnectionsForItem(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(conns))
	}
	if conns[0].ItemA >= conns[0].ItemB {
		t.Errorf("pair not canonical: (%d, %d)", conns[0].ItemA, conns[0].ItemB)
	}
}

func TestInsertConnection_DuplicatePairIsNoOp(t *testing.T) {
	d := openTestDB(t)
	a := seedItem(t, d, "https://example.com/a")
	b := seedItem(t, d, "https://example.com/b")

	if _, err := d.InsertConnection(a, b, 0.75); err != nil {
		t.Fatal(err)
	}
	// Same unordered pair, either orientation: success, no second row.
	inserted, err := d.InsertConnection(b, a, 0.9)
	if err != nil {
		t.Fatalf("duplicate pair surfaced an error: %v", err)
	}
	if inserted {
		t.Error("duplicate pair reported inserted=true")
	}

	conns, err := d.ConnectionsForItem(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 1 {
		t.Errorf("expected 1 connection, got %d", len(conns))
	}
}

func TestInsertConnection_SelfLink(t *testing.T) {
	d := openTestDB(t)
	a := seedItem(t, d, "https://example.com/a")

	if _, err := d.InsertConnection(a, a, 1.0); err == nil {
		t.Error("expected error for self link")
	}
}

func TestLinkedItemIDs_BothDirections(t *testing.T) {
	d := openTestDB(t)
	a := seedItem(t, d, "https://example.com/a")
	b := seedItem(t, d, "https://example.com/b")
	c := seedItem(t, d, "https://example.com/c")

	if _, err := d.InsertConnection(a, b, 0.8); err != nil {
		t.Fatal(err)
	}
	if _, err := d.InsertConnection(b, c, 0.8); err != nil {
		t.Fatal(err)
	}

	linked, err := d.LinkedItemIDs(b)
	if err != nil {
		t.Fatal(err)
	}
	if !linked[a] || !linked[c] {
		t.Errorf("expected %d and %d linked to %d, got %v", a, c, b, linked)
	}
}

func TestLinkedItemIDs_IncludesDismissed(t *testing.T) {
	d := openTestDB(t)
	a := seedItem(t, d, "https://example.com/a")
	b := seedItem(t, d, "https://example.com/b")

	if _, err := d.InsertConnection(a, b, 0.8); err != nil {
		t.Fatal(err)
	}
	conns, _ := d.ConnectionsForItem(a)
	if err := d.DismissConnection(conns[0].ID); err != nil {
		t.Fatal(err)
	}

	// A dismissed pair stays linked: discovery never reconsiders it.
	linked, err := d.LinkedItemIDs(a)
	if err != nil {
		t.Fatal(err)
	}
	if !linked[b] {
		t.Error("dismissed pair dropped from linked set")
	}
}

func TestDismissConnection_KeepsRow(t *testing.T) {
	d := openTestDB(t)
	a := seedItem(t, d, "https://example.com/a")
	b := seedItem(t, d, "https://example.com/b")

	if _, err := d.InsertConnection(a, b, 0.8); err != nil {
		t.Fatal(err)
	}
	conns, _ := d.ConnectionsForItem(a)
	if err := d.DismissConnection(conns[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := d.GetConnection(conns[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("row deleted on dismiss")
	}
	if !got.Dismissed {
		t.Error("dismissed flag not set")
	}
	if got.Score != 0.8 {
		t.Errorf("similarity evidence lost: %f", got.Score)
	}
}

func TestHasConnections_Derived(t *testing.T) {
	d := openTestDB(t)
	a := seedItem(t, d, "https://example.com/a")
	b := seedItem(t, d, "https://example.com/b")

	has, err := d.HasConnections(a)
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("expected no connections yet")
	}

	if _, err := d.InsertConnection(a, b, 0.8); err != nil {
		t.Fatal(err)
	}
	has, err = d.HasConnections(b)
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Error("expected connection to be visible from either side")
	}
}
