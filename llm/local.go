package llm

import (
	"context"
	"math"
	"strings"

	"github.com/spaolacci/murmur3"
)

var _ Embedder = new(LocalEmbedder)

// LocalEmbedder produces deterministic feature-hashed vectors with no
// network dependency. It exists for tests and for running with embeddings
// disabled upstream; retrieval quality degrades to lexical-only.
type LocalEmbedder struct {
	Dim int
}

func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{Dim: 256}
}

func (e *LocalEmbedder) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	dim := e.Dim
	if dim <= 0 {
		dim = 256
	}
	vec := make([]float32, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := murmur3.Sum32([]byte(tok))
		vec[int(h)%dim] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
