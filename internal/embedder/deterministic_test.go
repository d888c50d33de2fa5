package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicEmbedBatchReturnsFixedDimension(t *testing.T) {
	e := NewDeterministic(1024)
	vecs, err := e.EmbedBatch(context.Background(), []string{"hello world", "another text"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.Len(t, v, 1024)
	}
}

func TestDeterministicEmbedBatchIsStable(t *testing.T) {
	e := NewDeterministic(64)
	a, err := e.EmbedBatch(context.Background(), []string{"same text"})
	require.NoError(t, err)
	b, err := e.EmbedBatch(context.Background(), []string{"same text"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeterministicEmbedBatchDiffersByInput(t *testing.T) {
	e := NewDeterministic(64)
	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestDeterministicPingAlwaysSucceeds(t *testing.T) {
	e := NewDeterministic(8)
	assert.NoError(t, e.Ping(context.Background()))
}

func TestDeterministicEmbedBatchEmptyInput(t *testing.T) {
	e := NewDeterministic(8)
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
