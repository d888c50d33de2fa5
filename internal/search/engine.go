package search

import (
	"context"
	"fmt"

	"github.com/amelia-run/amelia/internal/embedder"
	"github.com/amelia-run/amelia/internal/store"
)

// Engine runs vector, BM25, and hybrid retrieval against a Store and
// assembles candidate chunk ids into fully-populated result items.
type Engine struct {
	store       *store.Store
	embedder    embedder.Embedder
	reranker    Reranker
	rrfK        int
	hybridAlpha float64
}

// New constructs a search engine. rrfK is the RRF rank-fusion constant
// (60 per the store contract) and hybridAlpha weights BM25 vs vector
// contributions in hybrid mode.
func New(st *store.Store, emb embedder.Embedder, reranker Reranker, rrfK int, hybridAlpha float64) *Engine {
	if rrfK <= 0 {
		rrfK = 60
	}
	return &Engine{store: st, embedder: emb, reranker: reranker, rrfK: rrfK, hybridAlpha: hybridAlpha}
}

// Search runs the resolved strategy and returns an assembled, ranked
// response capped at req.K items.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	k := req.K
	if k <= 0 {
		k = 5
	}
	if k > 50 {
		k = 50
	}
	strategy := resolveStrategy(req.Query, req.Strategy)
	filter := store.VectorFilter{
		Collection: req.Collection,
		SourceType: req.SourceType,
		FileType:   req.FileType,
		Domain:     req.Domain,
		Language:   req.Language,
	}

	var fused []fusedHit
	switch strategy {
	case StrategyVector:
		vec, err := e.vectorSearch(ctx, req.Query, k, filter)
		if err != nil {
			return Response{}, err
		}
		fused = fuseRRF(vec, nil, e.rrfK, 0)
	case StrategyBM25:
		bm25, err := e.store.FullText.Search(ctx, req.Collection, req.Query, req.Language, k)
		if err != nil {
			return Response{}, fmt.Errorf("search: bm25: %w", err)
		}
		fused = fuseRRF(nil, bm25, e.rrfK, 1)
	default: // hybrid
		kPrime := 3 * k
		var bm25 []store.FullTextResult
		var bm25Err error
		bm25Done := make(chan struct{})
		go func() {
			defer close(bm25Done)
			bm25, bm25Err = e.store.FullText.Search(ctx, req.Collection, req.Query, req.Language, kPrime)
		}()
		vec, err := e.vectorSearch(ctx, req.Query, kPrime, filter)
		<-bm25Done
		if err != nil {
			return Response{}, err
		}
		if bm25Err != nil {
			return Response{}, fmt.Errorf("search: bm25: %w", bm25Err)
		}
		fused = fuseRRF(vec, bm25, e.rrfK, e.hybridAlpha)
	}

	if len(fused) > k {
		fused = fused[:k]
	}

	items, err := e.assemble(ctx, fused)
	if err != nil {
		return Response{}, err
	}

	if shouldRerank(k, e.reranker != nil, req.Rerank) {
		items, err = e.reranker.Rerank(ctx, req.Query, items)
		if err != nil {
			return Response{}, fmt.Errorf("search: rerank: %w", err)
		}
	}

	return Response{Strategy: strategy, Items: items}, nil
}

func (e *Engine) vectorSearch(ctx context.Context, query string, k int, filter store.VectorFilter) ([]store.VectorResult, error) {
	vecs, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("search: no embedding returned for query")
	}
	hits, err := e.store.Vectors.SimilaritySearch(ctx, vecs[0], k, filter)
	if err != nil {
		return nil, fmt.Errorf("search: vector search: %w", err)
	}
	return hits, nil
}

func (e *Engine) assemble(ctx context.Context, fused []fusedHit) ([]Item, error) {
	if len(fused) == 0 {
		return nil, nil
	}
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}
	chunks, err := e.store.Chunks.GetWithDocument(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("search: assemble results: %w", err)
	}

	items := make([]Item, 0, len(fused))
	for _, f := range fused {
		cw, ok := chunks[f.ChunkID]
		if !ok {
			continue
		}
		items = append(items, Item{
			ChunkID:        cw.ID,
			DocumentID:     cw.DocumentID,
			Score:          f.Fused,
			Content:        cw.Content,
			Snippet:        snippetOrContent(f.Snippet, cw.Content),
			Headers:        cw.Headers,
			Title:          cw.DocumentTitle,
			SourcePath:     cw.DocumentSourcePath,
			SourceURL:      cw.DocumentSourceURL,
			SourceType:     string(cw.DocumentSourceType),
			Metadata:       cw.Metadata,
			StartTimestamp: cw.StartTimestamp,
			EndTimestamp:   cw.EndTimestamp,
			Explanation: map[string]float64{
				"fused":    f.Fused,
				"vec_rrf":  f.VecRRF,
				"bm25_rrf": f.BM25RRF,
			},
		})
	}
	return items, nil
}

func snippetOrContent(snippet, content string) string {
	if snippet != "" {
		return snippet
	}
	if len(content) > 280 {
		return content[:280]
	}
	return content
}
