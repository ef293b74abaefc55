package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_TitleAndDescription(t *testing.T) {
	srv := serve(t, `<html><head><title>Hello</title>
		<meta name="description" content="World"></head></html>`)

	meta, err := NewFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Title != "Hello" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Description != "World" {
		t.Errorf("description = %q", meta.Description)
	}
}

func TestFetch_OpenGraphFallback(t *testing.T) {
	srv := serve(t, `<html><head>
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG Desc"></head></html>`)

	meta, err := NewFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Title != "OG Title" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Description != "OG Desc" {
		t.Errorf("description = %q", meta.Description)
	}
}

func TestFetch_PlainMetaWinsOverOG(t *testing.T) {
	srv := serve(t, `<html><head><title>Real</title>
		<meta name="description" content="Plain">
		<meta property="og:title" content="OG">
		<meta property="og:description" content="OGDesc"></head></html>`)

	meta, err := NewFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Title != "Real" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Description != "Plain" {
		t.Errorf("description = %q", meta.Description)
	}
}

func TestFetch_MangledHTML(t *testing.T) {
	srv := serve(t, `<head><title>Broken</ti><div><p>stuff`)

	meta, err := NewFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("parser should tolerate broken HTML: %v", err)
	}
	_ = meta
}

func TestFetch_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := NewFetcher().Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error on 404")
	}
}

func TestFetch_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	if _, err := NewFetcher().Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for endless redirects")
	}
}
