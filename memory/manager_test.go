package memory_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/swasthya/swasthya-go/core"
	"github.com/swasthya/swasthya-go/memory"
	"github.com/swasthya/swasthya-go/memory/embedder/mock"
	"github.com/swasthya/swasthya-go/memory/store/chromem"
)

func newTestManager(t *testing.T) (*memory.Manager, *chromem.Store) {
	t.Helper()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return memory.NewManager(store, mock.New(0), nil), store
}

func TestIngestAndCrossKindAsk(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	if _, err := mgr.IngestVitals(ctx, core.Vitals{Weight: 56}); err != nil {
		t.Fatalf("ingest vitals: %v", err)
	}
	if _, err := mgr.IngestDocument(ctx, core.Document{
		Kind:     core.KindPrescription,
		Modality: core.ModalityText,
		Data:     []byte("Amoxicillin 250mg three times daily after meals"),
	}); err != nil {
		t.Fatalf("ingest prescription: %v", err)
	}

	// Cross-kind search: no kind filter, the vitals record must win on
	// similarity alone.
	hits, err := mgr.Ask(ctx, "what is my weight", 5)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Kind != core.KindVitals {
		t.Errorf("top hit kind = %s, want vitals", hits[0].Kind)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("vitals score %f not above prescription score %f", hits[0].Score, hits[1].Score)
	}
	if !strings.Contains(hits[0].Excerpt, "56") {
		t.Errorf("excerpt %q does not carry the measurement", hits[0].Excerpt)
	}
}

func TestIngestRejectedArtifactLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)

	_, err := mgr.IngestVitals(ctx, core.Vitals{})
	if !errors.Is(err, core.ErrEmptyExtraction) {
		t.Fatalf("expected ErrEmptyExtraction, got %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("store holds %d records after rejected ingest, want 0", n)
	}
}

func TestAskDeterministicOrdering(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	for i := 0; i < 4; i++ {
		if _, err := mgr.IngestDocument(ctx, core.Document{
			Kind:     core.KindReport,
			Modality: core.ModalityText,
			Data:     []byte(fmt.Sprintf("blood report number %d shows hemoglobin normal", i)),
		}); err != nil {
			t.Fatalf("ingest report %d: %v", i, err)
		}
	}

	first, err := mgr.Ask(ctx, "hemoglobin blood report", 3)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	second, err := mgr.Ask(ctx, "hemoglobin blood report", 3)
	if err != nil {
		t.Fatalf("ask again: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("hit counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("hit %d differs between identical queries: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestAllListsEveryRecord(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	if _, err := mgr.IngestVitals(ctx, core.Vitals{Weight: 55}); err != nil {
		t.Fatalf("ingest vitals: %v", err)
	}
	if _, err := mgr.IngestVaccine(ctx, core.Vaccine{
		ChildName:   "Asha",
		VaccineName: "BCG",
		Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("ingest vaccine: %v", err)
	}

	all, err := mgr.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("listing holds %d records, want 2", len(all))
	}
	for _, sum := range all {
		if sum.ID == "" || sum.Preview == "" {
			t.Errorf("summary missing data: %+v", sum)
		}
	}
}

// flakyStore fails the first failures inserts with a transient error,
// then delegates.
type flakyStore struct {
	memory.Store
	failures int
	attempts int
}

func (f *flakyStore) Insert(ctx context.Context, rec memory.MemoryRecord) error {
	f.attempts++
	if f.attempts <= f.failures {
		return fmt.Errorf("%w: simulated outage", core.ErrStorageUnavailable)
	}
	return f.Store.Insert(ctx, rec)
}

func TestIngestRetriesTransientStorageFailure(t *testing.T) {
	ctx := context.Background()
	inner, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	flaky := &flakyStore{Store: inner, failures: 2}
	mgr := memory.NewManager(flaky, mock.New(0), nil)

	rec, err := mgr.IngestVitals(ctx, core.Vitals{Weight: 60})
	if err != nil {
		t.Fatalf("ingest with transient failures: %v", err)
	}
	if flaky.attempts != 3 {
		t.Errorf("insert attempted %d times, want 3", flaky.attempts)
	}

	// The retried record must exist exactly once, under one ID.
	n, err := inner.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("store holds %d records after retried insert, want 1", n)
	}
	if rec.ID == "" {
		t.Error("ingest returned record without ID")
	}
}

func TestIngestSurfacesExhaustedRetries(t *testing.T) {
	ctx := context.Background()
	inner, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	flaky := &flakyStore{Store: inner, failures: 10}
	mgr := memory.NewManager(flaky, mock.New(0), nil)

	_, err = mgr.IngestVitals(ctx, core.Vitals{Weight: 60})
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable after exhausted retries, got %v", err)
	}
	if n, _ := inner.Count(ctx); n != 0 {
		t.Errorf("store holds %d records after failed ingest, want 0", n)
	}
}

// failingEmbedder simulates an embedder rejecting its input.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("input exceeds model context")
}
func (failingEmbedder) Dimensions() int { return 384 }

func TestIngestWrapsEmbedderFailure(t *testing.T) {
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mgr := memory.NewManager(store, failingEmbedder{}, nil)

	_, err = mgr.IngestVitals(context.Background(), core.Vitals{Weight: 60})
	if !errors.Is(err, core.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}
