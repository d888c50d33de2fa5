package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amelia-run/amelia/internal/store"
)

func TestFuseRRFRanksTopOfBothListsHighest(t *testing.T) {
	vec := []store.VectorResult{{ChunkID: "a", Score: 0.9}, {ChunkID: "b", Score: 0.8}}
	bm25 := []store.FullTextResult{{ChunkID: "a", Score: 1.2}, {ChunkID: "c", Score: 1.0}}
	fused := fuseRRF(vec, bm25, 60, 0.5)
	require.NotEmpty(t, fused)
	assert.Equal(t, "a", fused[0].ChunkID)
}

func TestFuseRRFIncludesUnionOfIDs(t *testing.T) {
	vec := []store.VectorResult{{ChunkID: "a"}}
	bm25 := []store.FullTextResult{{ChunkID: "b"}}
	fused := fuseRRF(vec, bm25, 60, 0.5)
	ids := map[string]bool{}
	for _, f := range fused {
		ids[f.ChunkID] = true
	}
	assert.True(t, ids["a"])
	assert.True(t, ids["b"])
}

func TestFuseRRFAlphaZeroIgnoresBM25Contribution(t *testing.T) {
	vec := []store.VectorResult{{ChunkID: "a"}}
	bm25 := []store.FullTextResult{{ChunkID: "b"}}
	fused := fuseRRF(vec, bm25, 60, 0)
	var scoreA, scoreB float64
	for _, f := range fused {
		if f.ChunkID == "a" {
			scoreA = f.Fused
		}
		if f.ChunkID == "b" {
			scoreB = f.Fused
		}
	}
	assert.Greater(t, scoreA, 0.0)
	assert.Equal(t, 0.0, scoreB)
}

func TestFuseRRFIsDeterministicOnTie(t *testing.T) {
	vec := []store.VectorResult{{ChunkID: "z"}, {ChunkID: "a"}}
	f1 := fuseRRF(vec, nil, 60, 0.5)
	f2 := fuseRRF(vec, nil, 60, 0.5)
	assert.Equal(t, f1, f2)
}
