package memory

import (
	"context"
	"math"
)

// Filter keys understood by every Store.
const (
	FilterKind     = "kind"
	FilterModality = "modality"
)

// Filter restricts a query or scan to records whose attributes equal
// the given values. Keys are FilterKind, FilterModality, or any string
// structured-field name (FieldChildName, FieldVaccineName, ...). A nil
// Filter matches everything.
type Filter map[string]string

// Matches reports whether the record satisfies every filter clause.
func (f Filter) Matches(r MemoryRecord) bool {
	for k, want := range f {
		switch k {
		case FilterKind:
			if string(r.Kind) != want {
				return false
			}
		case FilterModality:
			if string(r.Modality) != want {
				return false
			}
		default:
			s, ok := r.StructuredFields[k].(string)
			if !ok || s != want {
				return false
			}
		}
	}
	return true
}

// Hit is one similarity-search result: a record and its score in
// [-1, 1] (cosine similarity against the query vector).
type Hit struct {
	Record MemoryRecord
	Score  float64
}

// Store is the vector storage backend. Implementations: chromem
// (embedded index) and sqlite (durable).
//
// The store is append-only: Insert never mutates an existing record,
// and there is no delete. Insert is idempotent under retry of the same
// record, but never silently deduplicates distinct records. Transient
// backend failures surface as core.ErrStorageUnavailable.
type Store interface {
	// Insert persists the record. Either the record becomes fully
	// visible or the store is unchanged.
	Insert(ctx context.Context, rec MemoryRecord) error

	// Query returns up to topK records ranked by descending cosine
	// similarity to embedding. Ties break by most-recent CreatedAt,
	// then ID, so a fixed store state always yields identical ordered
	// results. filter restricts the candidate set before ranking.
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Hit, error)

	// Scan calls fn for every record matching filter until fn returns
	// false. Each call re-reads current state; no cursor is shared.
	Scan(ctx context.Context, filter Filter, fn func(MemoryRecord) bool) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to a fixed-length vector. Deterministic for
// identical input within one deployed model version; oversized input
// fails with core.ErrEmbedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
