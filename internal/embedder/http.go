package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amelia-run/amelia/internal/config"
	"github.com/amelia-run/amelia/internal/errkind"
)

type httpEmbedder struct {
	cfg       config.EmbeddingConfig
	dim       int
	batchSize int
	client    *http.Client
}

func (h *httpEmbedder) Name() string   { return h.cfg.Model }
func (h *httpEmbedder) Dimension() int { return h.dim }

func (h *httpEmbedder) httpClient() *http.Client {
	if h.client != nil {
		return h.client
	}
	return http.DefaultClient
}

func (h *httpEmbedder) Ping(ctx context.Context) error {
	_, err := h.embedOneBatch(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedder: reachability check failed: %w", err)
	}
	return nil
}

// EmbedBatch splits texts into at most batchSize-sized requests and
// validates that every response vector matches the configured dimension
// before returning, per the embedding-dimension-as-a-type invariant.
func (h *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += h.batchSize {
		end := i + h.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := h.embedOneBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *httpEmbedder) embedOneBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: h.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	timeout := h.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, h.cfg.BaseURL+h.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	switch h.cfg.APIHeader {
	case "":
	case "Authorization":
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	default:
		req.Header.Set(h.cfg.APIHeader, h.cfg.APIKey)
	}

	resp, err := h.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedder: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedder: endpoint returned %s: %s", resp.Status, truncate(respBody, 200))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedder: parse response (input count %d): %w", len(texts), err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedder: got %d embeddings, want %d", len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		if h.dim > 0 && len(d.Embedding) != h.dim {
			return nil, errkind.New(errkind.ConfigurationError, fmt.Errorf("embedder: embedding dimension mismatch: got %d want %d", len(d.Embedding), h.dim))
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
