// Package store is Amelia's persistence layer: a single Postgres schema
// (documents, chunks, embeddings, jobs, crawl_queue, crawled_urls) plus the
// repositories and collaborator interfaces that sit on top of it. Vector
// search can be satisfied either by pgvector in the same database or by an
// external Qdrant collection, selected through the VectorIndex interface.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amelia-run/amelia/internal/config"
)

// Store bundles the connection pool with every repository Amelia's
// pipelines and tools need, so callers construct it once at startup and
// hand it down through context or explicit dependency injection.
type Store struct {
	Pool      *pgxpool.Pool
	Documents *Documents
	Chunks    *Chunks
	FullText  *FullText
	Jobs      *Jobs
	Crawl     *Crawl
	Vectors   VectorIndex
}

// Option customizes Store construction.
type Option func(*storeOptions)

type storeOptions struct {
	vectorBackend    string
	qdrantDSN        string
	qdrantCollection string
}

// WithVectorBackend selects "postgres" (default) or "qdrant".
func WithVectorBackend(backend string) Option {
	return func(o *storeOptions) { o.vectorBackend = backend }
}

// WithQdrant supplies the Qdrant connection details used when the vector
// backend is "qdrant".
func WithQdrant(dsn, collection string) Option {
	return func(o *storeOptions) {
		o.qdrantDSN = dsn
		o.qdrantCollection = collection
	}
}

// New opens the connection pool, bootstraps the schema, and wires every
// repository, including the selected VectorIndex backend.
func New(ctx context.Context, cfg config.StoreConfig, embeddingDim int, opts ...Option) (*Store, error) {
	o := storeOptions{vectorBackend: "postgres"}
	for _, opt := range opts {
		opt(&o)
	}

	pool, err := OpenPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := Bootstrap(ctx, pool, embeddingDim); err != nil {
		pool.Close()
		return nil, err
	}

	vectors, err := NewVectorIndex(o.vectorBackend, pool, o.qdrantDSN, o.qdrantCollection, embeddingDim)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		Pool:      pool,
		Documents: NewDocuments(pool),
		Chunks:    NewChunks(pool),
		FullText:  NewFullText(pool),
		Jobs:      NewJobs(pool),
		Crawl:     NewCrawl(pool),
		Vectors:   vectors,
	}, nil
}

// Close releases the pool and any backend-specific client held by the
// vector index.
func (s *Store) Close() {
	if closer, ok := s.Vectors.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.Pool.Close()
}
