package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/swasthya/swasthya-go/core"
)

// DefaultTopK is the hit count Ask uses when the caller passes 0.
const DefaultTopK = 5

const (
	// Bounded backoff for transient storage failures.
	storageAttempts = 3
	storageBackoff  = 100 * time.Millisecond

	// excerptLen bounds the canonical-text excerpt in shaped results.
	excerptLen = 200
)

// RetrievalHit is one shaped answer to Ask: enough for a consumer to
// display ranked, explainable evidence.
type RetrievalHit struct {
	Kind     core.Kind
	Modality core.Modality
	Excerpt  string
	Score    float64
}

// RecordSummary is one entry of the full-memory listing.
type RecordSummary struct {
	ID        string
	Kind      core.Kind
	Preview   string
	CreatedAt time.Time
}

// Manager orchestrates the engine: the ingestion write path
// (normalize -> embed -> insert with bounded retry) and the retrieval
// read path (Ask, All). It holds no mutable state of its own; every
// call runs to completion independently.
type Manager struct {
	store      Store
	embedder   Embedder
	normalizer *Normalizer
}

// NewManager wires a store, an embedder and a normalizer. A nil
// normalizer gets the default extractor set (text + PDF).
func NewManager(store Store, embedder Embedder, normalizer *Normalizer) *Manager {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &Manager{store: store, embedder: embedder, normalizer: normalizer}
}

// IngestDocument normalizes, embeds and stores a prescription or
// report artifact. Blank extractions are rejected before any record
// exists.
func (m *Manager) IngestDocument(ctx context.Context, doc core.Document) (MemoryRecord, error) {
	text, fields, err := m.normalizer.NormalizeDocument(ctx, doc)
	if err != nil {
		return MemoryRecord{}, err
	}
	return m.ingest(ctx, doc.Kind, doc.Modality, text, fields, time.Time{})
}

// IngestVitals stores a structured vitals measurement as a time-aware
// memory. A RecordedAt on the artifact becomes the record's CreatedAt
// so backfilled measurements sort correctly in trends.
func (m *Manager) IngestVitals(ctx context.Context, v core.Vitals) (MemoryRecord, error) {
	text, fields, err := NormalizeVitals(v)
	if err != nil {
		return MemoryRecord{}, err
	}
	return m.ingest(ctx, core.KindVitals, core.ModalityText, text, fields, v.RecordedAt)
}

// IngestVaccine stores a vaccination event.
func (m *Manager) IngestVaccine(ctx context.Context, v core.Vaccine) (MemoryRecord, error) {
	text, fields, err := NormalizeVaccine(v)
	if err != nil {
		return MemoryRecord{}, err
	}
	return m.ingest(ctx, core.KindVaccine, core.ModalityText, text, fields, time.Time{})
}

func (m *Manager) ingest(ctx context.Context, kind core.Kind, modality core.Modality, text string, fields map[string]any, createdAt time.Time) (MemoryRecord, error) {
	embedding, err := m.embed(ctx, text)
	if err != nil {
		return MemoryRecord{}, err
	}

	rec := NewRecord(kind, modality, text, fields)
	rec.Embedding = embedding
	if !createdAt.IsZero() {
		rec.CreatedAt = createdAt.UTC()
	}

	// Retry is safe: the record keeps its ID across attempts, and
	// stores accept a same-ID replay without duplicating.
	if err := withStorageRetry(ctx, func() error {
		return m.store.Insert(ctx, rec)
	}); err != nil {
		return MemoryRecord{}, fmt.Errorf("insert %s record: %w", kind, err)
	}

	log.Printf("[MEMORY] stored %s record %s (%d chars)", kind, rec.ID, len(text))
	return rec, nil
}

// Ask embeds the question and runs an unfiltered, cross-kind top-k
// similarity search. Asking "what is my weight" should match vitals
// records without naming a kind; consumers get the score for their own
// filtering. topK <= 0 means DefaultTopK.
func (m *Manager) Ask(ctx context.Context, question string, topK int) ([]RetrievalHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := m.embed(ctx, question)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	if err := withStorageRetry(ctx, func() error {
		var qErr error
		hits, qErr = m.store.Query(ctx, embedding, topK, nil)
		return qErr
	}); err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}

	log.Printf("[MEMORY] retrieved %d hits for %q", len(hits), truncate(question, 50))

	shaped := make([]RetrievalHit, 0, len(hits))
	for _, h := range hits {
		shaped = append(shaped, RetrievalHit{
			Kind:     h.Record.Kind,
			Modality: h.Record.Modality,
			Excerpt:  truncate(h.Record.CanonicalText, excerptLen),
			Score:    h.Score,
		})
	}
	return shaped, nil
}

// All lists every stored record as a summary, via the metadata scan.
func (m *Manager) All(ctx context.Context) ([]RecordSummary, error) {
	var out []RecordSummary
	err := m.store.Scan(ctx, nil, func(rec MemoryRecord) bool {
		out = append(out, RecordSummary{
			ID:        rec.ID,
			Kind:      rec.Kind,
			Preview:   truncate(rec.CanonicalText, excerptLen),
			CreatedAt: rec.CreatedAt,
		})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	return out, nil
}

func (m *Manager) embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, core.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}
	if want := m.embedder.Dimensions(); want > 0 && len(embedding) != want {
		return nil, fmt.Errorf("%w: got %d dimensions, embedder declares %d", core.ErrEmbedding, len(embedding), want)
	}
	return embedding, nil
}

// withStorageRetry retries fn on core.ErrStorageUnavailable with
// bounded backoff; any other error surfaces immediately.
func withStorageRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= storageAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, core.ErrStorageUnavailable) {
			return err
		}
		if attempt == storageAttempts {
			break
		}
		log.Printf("[MEMORY] storage unavailable (attempt %d/%d), backing off", attempt, storageAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(storageBackoff * time.Duration(attempt)):
		}
	}
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
