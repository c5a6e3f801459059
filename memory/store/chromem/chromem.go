// Package chromem provides the embedded vector store, backed by
// chromem-go (a pure Go vector database).
//
// Records live in an append-only in-process log; the chromem
// collection serves as the nearest-neighbor index over the same IDs.
// Scans and metadata lookups read the log, similarity queries go
// through the index.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/swasthya/swasthya-go/memory"
)

const collectionName = "health_memory"

// Store implements memory.Store in process memory.
type Store struct {
	col *chromem.Collection

	mu   sync.RWMutex
	recs []memory.MemoryRecord
	byID map[string]int
	dims int
}

// New creates an empty store.
func New() (*Store, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Store{col: col, byID: make(map[string]int)}, nil
}

// Insert appends the record. Replaying the same record (same ID, same
// canonical text) is a no-op so retries after transient failures are
// safe; reusing an ID for different content is an error.
func (s *Store) Insert(ctx context.Context, rec memory.MemoryRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.byID[rec.ID]; ok {
		if s.recs[idx].CanonicalText == rec.CanonicalText {
			return nil
		}
		return fmt.Errorf("insert: id %s already holds a different record", rec.ID)
	}
	if s.dims != 0 && len(rec.Embedding) != s.dims {
		return fmt.Errorf("insert: embedding has %d dimensions, store holds %d", len(rec.Embedding), s.dims)
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.CanonicalText,
		Embedding: rec.Embedding,
		Metadata:  memory.IndexMetadata(rec),
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.recs = append(s.recs, rec.Copy())
	s.byID[rec.ID] = len(s.recs) - 1
	s.dims = len(rec.Embedding)
	return nil
}

// Query ranks filtered candidates by cosine similarity via the chromem
// index, then resolves each hit against the log. Ties break by
// most-recent CreatedAt, then ID.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int, filter memory.Filter) ([]memory.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims != 0 && len(embedding) != s.dims {
		return nil, fmt.Errorf("query: embedding has %d dimensions, store holds %d", len(embedding), s.dims)
	}

	// Ask chromem for every filtered candidate, not just topK: chromem
	// iterates its document map in arbitrary order, so letting it pick
	// which score-tied records survive the cutoff would make the result
	// set nondeterministic. The tie-break sort below decides, then we
	// truncate. (chromem also rejects nResults above the matching
	// document count, so this doubles as the clamp.)
	candidates := 0
	for _, rec := range s.recs {
		if filter.Matches(rec) {
			candidates++
		}
	}
	if candidates == 0 {
		return nil, nil
	}

	results, err := s.col.QueryEmbedding(ctx, embedding, candidates, map[string]string(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	log.Printf("[CHROMEM] query returned %d of %d candidates", len(results), candidates)

	hits := make([]memory.Hit, 0, len(results))
	for _, res := range results {
		idx, ok := s.byID[res.ID]
		if !ok {
			continue
		}
		hits = append(hits, memory.Hit{
			Record: s.recs[idx].Copy(),
			Score:  float64(res.Similarity),
		})
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Scan iterates a snapshot of the filtered log in insertion order.
func (s *Store) Scan(_ context.Context, filter memory.Filter, fn func(memory.MemoryRecord) bool) error {
	s.mu.RLock()
	snapshot := make([]memory.MemoryRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		if filter.Matches(rec) {
			snapshot = append(snapshot, rec.Copy())
		}
	}
	s.mu.RUnlock()

	for _, rec := range snapshot {
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs), nil
}

// Close is a no-op; everything lives in process memory.
func (s *Store) Close() error { return nil }

func validate(rec memory.MemoryRecord) error {
	switch {
	case rec.ID == "":
		return errors.New("insert: record has no id")
	case rec.CanonicalText == "":
		return errors.New("insert: record has empty canonical text")
	case len(rec.Embedding) == 0:
		return errors.New("insert: record has no embedding")
	}
	return nil
}

func sortHits(hits []memory.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].Record.CreatedAt.Equal(hits[j].Record.CreatedAt) {
			return hits[i].Record.CreatedAt.After(hits[j].Record.CreatedAt)
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
}
