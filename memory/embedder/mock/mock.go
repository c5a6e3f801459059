// Package mock provides a deterministic embedder for tests. No model
// files, no network.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDimensions matches all-MiniLM-L6-v2 so fixtures line up with
// the real local model.
const DefaultDimensions = 384

// Embedder hashes each lowercased token into a fixed number of
// buckets and normalizes the result. Texts sharing words get positive
// cosine similarity, so retrieval tests exercise real ranking without
// a model: "what is my weight" lands near "Weight recorded: 56 kg"
// and far from an unrelated prescription.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder. dims <= 0 means DefaultDimensions.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dimensions: dims}
}

// Embed produces the bag-of-tokens vector for text. Deterministic for
// identical input.
func (m *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	embedding := make([]float32, m.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?;:\"'()")
		if token == "" {
			continue
		}
		h := fnv.New64a()
		h.Write([]byte(token))
		embedding[h.Sum64()%uint64(m.dimensions)] += 1
	}
	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
