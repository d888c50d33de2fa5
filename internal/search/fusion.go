package search

import (
	"sort"

	"github.com/amelia-run/amelia/internal/store"
)

type fusedHit struct {
	ChunkID  string
	VecRank  int
	BM25Rank int
	VecRRF   float64
	BM25RRF  float64
	Fused    float64
	Snippet  string
}

// fuseRRF merges vector and BM25 rankings with Reciprocal Rank Fusion: each
// list contributes 1/(k+rank) to a chunk's score, weighted by alpha for the
// BM25 side and (1-alpha) for vector, matching the RRF_k=60, alpha-weighted
// scheme.
func fuseRRF(vec []store.VectorResult, bm25 []store.FullTextResult, k int, alpha float64) []fusedHit {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	wBM25 := alpha
	wVec := 1 - alpha

	vecRank := make(map[string]int, len(vec))
	for i, r := range vec {
		vecRank[r.ChunkID] = i + 1
	}
	bm25Rank := make(map[string]int, len(bm25))
	bm25Snippet := make(map[string]string, len(bm25))
	for i, r := range bm25 {
		bm25Rank[r.ChunkID] = i + 1
		bm25Snippet[r.ChunkID] = r.Snippet
	}

	seen := map[string]struct{}{}
	var ids []string
	for _, r := range vec {
		if _, ok := seen[r.ChunkID]; !ok {
			seen[r.ChunkID] = struct{}{}
			ids = append(ids, r.ChunkID)
		}
	}
	for _, r := range bm25 {
		if _, ok := seen[r.ChunkID]; !ok {
			seen[r.ChunkID] = struct{}{}
			ids = append(ids, r.ChunkID)
		}
	}

	out := make([]fusedHit, 0, len(ids))
	for _, id := range ids {
		vr := vecRank[id]
		br := bm25Rank[id]
		vContrib := 0.0
		bContrib := 0.0
		if vr > 0 {
			vContrib = 1.0 / float64(k+vr)
		}
		if br > 0 {
			bContrib = 1.0 / float64(k+br)
		}
		out = append(out, fusedHit{
			ChunkID:  id,
			VecRank:  vr,
			BM25Rank: br,
			VecRRF:   vContrib,
			BM25RRF:  bContrib,
			Fused:    wVec*vContrib + wBM25*bContrib,
			Snippet:  bm25Snippet[id],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}
