package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbed_ReturnsVector(t *testing.T) {
	var gotModel, gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel, gotInput = req.Model, req.Input
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "nomic-embed-text")
	vec, err := e.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Errorf("vec = %v", vec)
	}
	if gotModel != "nomic-embed-text" || gotInput != "some text" {
		t.Errorf("request = %q / %q", gotModel, gotInput)
	}
}

func TestEmbed_EmptyEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer srv.Close()

	_, err := NewEmbedder(srv.URL, "m").Embed(context.Background(), "text")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewEmbedder(srv.URL, "m").Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error for 500")
	}
}

func TestIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if !NewEmbedder(srv.URL, "m").IsHealthy(context.Background()) {
		t.Error("healthy backend reported unhealthy")
	}
	srv.Close()
	if NewEmbedder(srv.URL, "m").IsHealthy(context.Background()) {
		t.Error("closed backend reported healthy")
	}
}
