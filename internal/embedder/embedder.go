// Package embedder batches text into fixed-dimension dense vectors. The
// dimension is part of the contract: any backend that returns a
// differently-sized vector is treated as a configuration error, never
// silently accepted.
package embedder

import (
	"context"

	"github.com/amelia-run/amelia/internal/config"
)

// Embedder converts text batches into dense vectors of a fixed dimension.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// New constructs the HTTP-backed embedder used in production, batching
// requests at cfg.BatchSize and validating every returned vector's length
// against dim before handing it back to a caller.
func New(cfg config.EmbeddingConfig, dim int) Embedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	return &httpEmbedder{cfg: cfg, dim: dim, batchSize: batchSize}
}
