package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestToVectorLiteralFormatsAsPostgresArray(t *testing.T) {
	got := toVectorLiteral([]float32{0.1, -0.25, 1})
	assert.Equal(t, "[0.1,-0.25,1]", got)
}

func TestToVectorLiteralEmpty(t *testing.T) {
	assert.Equal(t, "[]", toVectorLiteral(nil))
}

func TestQdrantPointIDPassesThroughValidUUID(t *testing.T) {
	id := uuid.New().String()
	assert.Equal(t, id, qdrantPointID(id))
}

func TestQdrantPointIDIsDeterministicForNonUUID(t *testing.T) {
	a := qdrantPointID("chunk-123")
	b := qdrantPointID("chunk-123")
	assert.Equal(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestQdrantPointIDDiffersByInput(t *testing.T) {
	a := qdrantPointID("chunk-1")
	b := qdrantPointID("chunk-2")
	assert.NotEqual(t, a, b)
}
