// Package ingest implements the local-file ingestion pipeline: resolve
// paths, parse to canonical text, hash, decide created/skipped/updated
// against the store, chunk, embed, and publish — all within the atomic
// document+chunk+embedding lifecycle the store package already guarantees.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/amelia-run/amelia/internal/chunker"
	"github.com/amelia-run/amelia/internal/contenthash"
	"github.com/amelia-run/amelia/internal/embedder"
	"github.com/amelia-run/amelia/internal/store"
)

// Outcome records what happened to a single file.
type Outcome struct {
	Path    string
	Action  store.IngestAction
	Version int
	Error   string
}

// Summary aggregates a run's per-file outcomes, the shape recorded in a
// job's metadata.summary.
type Summary struct {
	Accepted   int
	ErrorCount int
	Outcomes   []Outcome
}

// Pipeline wires the store, parser registry, chunker sizing, and embedder
// needed to ingest local files into a collection.
type Pipeline struct {
	Store     *store.Store
	Parsers   Parsers
	Embedder  embedder.Embedder
	ChunkOpts chunker.Options
	Language  string // ISO 639-1 code; defaults to "en"
}

// IngestFile runs the full parse→hash→decide→chunk→embed→publish algorithm
// for a single file. Skip is not an error: it is the idempotent outcome of
// re-ingesting unchanged content.
func (p *Pipeline) IngestFile(ctx context.Context, collection, path string) (Outcome, error) {
	fileType := strings.ToLower(filepath.Ext(path))
	doc, err := p.Parsers.Parse(path, fileType)
	if err != nil {
		return Outcome{Path: path, Error: err.Error()}, err
	}

	canonical := contenthash.Canonicalize(doc.Text)
	hash := contenthash.Hash(canonical)

	identity := store.DocumentIdentity{
		Collection:  collection,
		SourcePath:  path,
		SourceType:  store.SourceLocal,
		FileType:    strings.TrimPrefix(fileType, "."),
		Title:       doc.Title,
		ContentHash: hash,
	}

	tx, decision, err := p.Store.Documents.Upsert(ctx, identity)
	if err != nil {
		return Outcome{Path: path, Error: err.Error()}, err
	}
	outcome := Outcome{Path: path, Action: decision.Action, Version: decision.Version}
	if decision.Action == store.ActionSkipped {
		return outcome, nil
	}

	rawChunks := chunker.Split(canonical, p.ChunkOpts)
	if len(rawChunks) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return outcome, fmt.Errorf("ingest: commit empty document %s: %w", path, err)
		}
		return outcome, nil
	}

	texts := make([]string, len(rawChunks))
	for i, c := range rawChunks {
		texts[i] = c.Text
	}
	vectors, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		_ = tx.Rollback(ctx)
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("ingest: embed %s: %w", path, err)
	}
	if len(vectors) != len(rawChunks) {
		_ = tx.Rollback(ctx)
		err := fmt.Errorf("ingest: embedder returned %d vectors for %d chunks", len(vectors), len(rawChunks))
		outcome.Error = err.Error()
		return outcome, err
	}

	langConfig := store.ResolveLanguageConfig(p.languageOrDefault())
	items := make([]store.WriteChunk, len(rawChunks))
	for i, c := range rawChunks {
		items[i] = store.WriteChunk{
			Chunk: store.Chunk{
				ChunkIndex: c.Index,
				Content:    c.Text,
				CharCount:  len([]rune(c.Text)),
				WordCount:  len(strings.Fields(c.Text)),
				Headers:    c.Headers,
				Metadata:   map[string]string{"language": langConfig},
			},
			Vector: vectors[i],
		}
	}

	if err := store.PublishChunks(ctx, tx, decision.DocumentID, p.Embedder.Name(), items); err != nil {
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("ingest: publish chunks for %s: %w", path, err)
	}
	return outcome, nil
}

func (p *Pipeline) languageOrDefault() string {
	if p.Language == "" {
		return "en"
	}
	return p.Language
}

// Run ingests every resolved file, tolerating per-file failures (a
// PermanentInput error skips that file and continues) and reports progress
// after each file via onProgress.
func (p *Pipeline) Run(ctx context.Context, collection string, paths []string, onProgress func(processed, total int)) Summary {
	summary := Summary{Outcomes: make([]Outcome, 0, len(paths))}
	for i, path := range paths {
		outcome, err := p.IngestFile(ctx, collection, path)
		summary.Outcomes = append(summary.Outcomes, outcome)
		if err != nil {
			summary.ErrorCount++
		} else {
			summary.Accepted++
		}
		if onProgress != nil {
			onProgress(i+1, len(paths))
		}
	}
	return summary
}
