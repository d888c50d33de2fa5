package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amelia-run/amelia/internal/config"
)

// Reranker reorders items by a cross-encoder relevance score. Implementations
// must preserve every item; they only reorder.
type Reranker interface {
	Rerank(ctx context.Context, query string, items []Item) ([]Item, error)
}

// NoopReranker leaves ordering unchanged; it is wired when reranking is
// disabled in configuration.
type NoopReranker struct{}

func (NoopReranker) Rerank(_ context.Context, _ string, items []Item) ([]Item, error) {
	return items, nil
}

// NewReranker builds the configured cross-encoder reranker, or NoopReranker
// if reranking is disabled.
func NewReranker(cfg config.RerankConfig) Reranker {
	if !cfg.Enabled {
		return NoopReranker{}
	}
	return &httpReranker{cfg: cfg}
}

type httpReranker struct {
	cfg    config.RerankConfig
	client *http.Client
}

type rerankRequest struct {
	Model string   `json:"model"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

func (r *httpReranker) httpClient() *http.Client {
	if r.client != nil {
		return r.client
	}
	return http.DefaultClient
}

// Rerank calls the configured cross-encoder with the query against every
// item's content and reorders items by descending score. On a service error
// it returns the items in their original order together with the error,
// which Engine.Search reports as a failed search.
func (r *httpReranker) Rerank(ctx context.Context, query string, items []Item) ([]Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Content
	}
	body, err := json.Marshal(rerankRequest{Model: r.cfg.Model, Query: query, Texts: texts})
	if err != nil {
		return items, fmt.Errorf("search: marshal rerank request: %w", err)
	}

	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, r.cfg.BaseURL+r.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return items, fmt.Errorf("search: build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.httpClient().Do(req)
	if err != nil {
		return items, fmt.Errorf("search: rerank request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return items, fmt.Errorf("search: read rerank response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return items, fmt.Errorf("search: rerank endpoint returned %s", resp.Status)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return items, fmt.Errorf("search: parse rerank response: %w", err)
	}
	if len(parsed.Scores) != len(items) {
		return items, fmt.Errorf("search: got %d rerank scores, want %d", len(parsed.Scores), len(items))
	}

	reordered := make([]Item, len(items))
	copy(reordered, items)
	for i := range reordered {
		reordered[i].Score = parsed.Scores[i]
	}
	sortByScoreDesc(reordered)
	return reordered, nil
}

func sortByScoreDesc(items []Item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Score > items[j-1].Score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
