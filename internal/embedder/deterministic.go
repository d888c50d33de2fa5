package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// deterministicEmbedder hashes byte trigrams into a fixed-size vector. It
// never calls out to a network service, so it is the collaborator tests
// and local development wire in place of New.
type deterministicEmbedder struct {
	dim  int
	name string
}

// NewDeterministic constructs a deterministic embedder producing
// L2-normalized vectors of dimension dim.
func NewDeterministic(dim int) Embedder {
	if dim <= 0 {
		dim = 1024
	}
	return &deterministicEmbedder{dim: dim, name: "deterministic-test-embedder"}
}

func (d *deterministicEmbedder) Name() string               { return d.name }
func (d *deterministicEmbedder) Dimension() int              { return d.dim }
func (d *deterministicEmbedder) Ping(context.Context) error  { return nil }

func (d *deterministicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *deterministicEmbedder) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) < 3 {
		hashInto(b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			hashInto(b[i:i+3], v)
		}
	}
	normalize(v)
	return v
}

func hashInto(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	sum := h.Sum64()
	idx := int(sum % uint64(len(v)))
	weight := float32(int32(sum>>32)) / float32(1<<31)
	v[idx] += weight
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= inv
	}
}
