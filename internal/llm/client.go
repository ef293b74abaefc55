// Package llm holds the HTTP clients for the external extraction, synthesis
// and embedding services. Network calls here never run inside a store
// transaction; callers write results back separately.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Extraction is the structured result of extracting one item.
type Extraction struct {
	Summary     string   `json:"summary"`
	KeyInsights []string `json:"key_insights"`
	Topics      []string `json:"topics"`
	Quality     float64  `json:"quality"` // 0..1
}

// Synthesis is the result of a cross-item synthesis call.
type Synthesis struct {
	Themes        []string `json:"themes"`
	Insights      []string `json:"insights"`
	ProposedTasks []string `json:"proposed_tasks"`
}

// Client talks to a chat-completions style JSON endpoint. The model is asked
// to answer with a single JSON document, which is parsed back out of the
// first completion choice.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates an extraction/synthesis client. The request timeout is
// deliberately shorter than the http.Client's overall timeout so a stalled
// connect fails before a slow-but-live response does.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
	}
}

const extractionPrompt = `Summarize the following captured page. Respond with only a JSON object:
{"summary": "...", "key_insights": ["..."], "topics": ["..."], "quality": 0.0-1.0}

Title: %s
URL: %s

%s`

// Extract calls the extraction service for one item.
func (c *Client) Extract(ctx context.Context, title, url, rawText string) (*Extraction, error) {
	prompt := fmt.Sprintf(extractionPrompt, title, url, truncate(rawText, 12000))
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var ex Extraction
	if err := json.Unmarshal([]byte(stripFences(raw)), &ex); err != nil {
		return nil, fmt.Errorf("%w: parsing extraction: %v", ErrMalformedResponse, err)
	}
	if ex.Quality < 0 {
		ex.Quality = 0
	}
	if ex.Quality > 1 {
		ex.Quality = 1
	}
	return &ex, nil
}

const synthesisPrompt = `Below are summaries of recently captured items. Identify cross-cutting
themes, notable insights, and concrete follow-up tasks. Respond with only a JSON object:
{"themes": ["..."], "insights": ["..."], "proposed_tasks": ["..."]}

%s`

// Synthesize calls the synthesis service once with all item summaries
// serialized into a single prompt. Partial synthesis is never attempted:
// the call fails or succeeds as a unit.
func (c *Client) Synthesize(ctx context.Context, itemSummaries []string) (*Synthesis, error) {
	var sb strings.Builder
	for i, s := range itemSummaries {
		fmt.Fprintf(&sb, "--- Item %d ---\n%s\n\n", i+1, s)
	}
	raw, err := c.complete(ctx, fmt.Sprintf(synthesisPrompt, sb.String()))
	if err != nil {
		return nil, err
	}

	var syn Synthesis
	if err := json.Unmarshal([]byte(stripFences(raw)), &syn); err != nil {
		return nil, fmt.Errorf("%w: parsing synthesis: %v", ErrMalformedResponse, err)
	}
	return &syn, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete issues one chat completion and returns the first choice's text.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrQuotaExceeded
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrMissingCredential, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("%w: decoding completion: %v", ErrMalformedResponse, err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}
	return cr.Choices[0].Message.Content, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
