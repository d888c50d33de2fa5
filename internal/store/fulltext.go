package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FullTextResult is a single BM25/websearch hit with a highlighted snippet.
type FullTextResult struct {
	ChunkID string
	Score   float64
	Snippet string
}

// FullText is the BM25-style lexical search collaborator, backed by
// Postgres tsvector/tsquery rather than a bolted-on search engine.
type FullText struct {
	pool *pgxpool.Pool
}

// NewFullText constructs the full-text repository over pool.
func NewFullText(pool *pgxpool.Pool) *FullText { return &FullText{pool: pool} }

// Search runs a websearch-syntax query (quoted phrases, -exclusions)
// against the chunk tsvector column, restricted to collection, and returns
// results ranked by ts_rank_cd with a ts_headline snippet for display.
func (f *FullText) Search(ctx context.Context, collection, queryText, language string, k int) ([]FullTextResult, error) {
	if k <= 0 {
		k = 10
	}
	regconfig := resolveRegconfig(language)
	rows, err := f.pool.Query(ctx, `
		SELECT c.id,
			ts_rank_cd(c.ts, websearch_to_tsquery($1::regconfig, $2)) AS score,
			ts_headline($1::regconfig, c.content, websearch_to_tsquery($1::regconfig, $2),
				'MaxWords=35, MinWords=15, ShortWord=3, HighlightAll=false, MaxFragments=2')
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.collection = $3
			AND c.ts @@ websearch_to_tsquery($1::regconfig, $2)
		ORDER BY score DESC
		LIMIT $4`,
		regconfig, queryText, collection, k)
	if err != nil {
		return nil, fmt.Errorf("store: fulltext search: %w", err)
	}
	defer rows.Close()
	out := make([]FullTextResult, 0, k)
	for rows.Next() {
		var r FullTextResult
		if err := rows.Scan(&r.ChunkID, &r.Score, &r.Snippet); err != nil {
			return nil, fmt.Errorf("store: scan fulltext hit: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
