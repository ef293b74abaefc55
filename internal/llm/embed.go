package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Embedder talks to an Ollama-compatible /api/embed endpoint.
type Embedder struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewEmbedder creates an embedding client for the given host and model.
func NewEmbedder(host, model string) *Embedder {
	return &Embedder{
		host:  host,
		model: model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Model returns the model tag stored alongside each vector.
func (e *Embedder) Model() string {
	return e.model
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the raw embedding vector for the given text. Callers
// normalize before storage.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode embed response: %v", ErrMalformedResponse, err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embeddings", ErrMalformedResponse)
	}

	return result.Embeddings[0], nil
}

// IsHealthy checks if the embedding backend is reachable.
func (e *Embedder) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
