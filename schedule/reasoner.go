package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/swasthya/swasthya-go/core"
	"github.com/swasthya/swasthya-go/memory"
)

// Scanner is the slice of the memory store the reasoner reads:
// filtered iteration over the metadata index, no embeddings involved.
type Scanner interface {
	Scan(ctx context.Context, filter memory.Filter, fn func(memory.MemoryRecord) bool) error
}

// Due is one outstanding vaccine and when it was expected.
type Due struct {
	Vaccine    string
	ExpectedBy time.Time
}

// Reasoner computes schedule gaps from stored vaccination events.
type Reasoner struct {
	store    Scanner
	schedule Schedule
	now      func() time.Time
}

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reasoner) { r.now = now }
}

// NewReasoner builds a Reasoner over the store and schedule.
func NewReasoner(store Scanner, sched Schedule, opts ...Option) *Reasoner {
	r := &Reasoner{store: store, schedule: sched, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PendingVaccines returns the schedule entries whose expected date
// (birthDate + age offset) has passed and that have no administered
// record for the child, sorted by expected date then name. A vaccine
// administered before its window still counts as administered; dosing
// order and spacing are not validated. The result depends only on
// current store contents, the schedule and the clock.
func (r *Reasoner) PendingVaccines(ctx context.Context, childName string, birthDate time.Time) ([]Due, error) {
	filter := memory.Filter{
		memory.FilterKind:     string(core.KindVaccine),
		memory.FieldChildName: childName,
	}
	administered := make(map[string]bool)
	err := r.store.Scan(ctx, filter, func(rec memory.MemoryRecord) bool {
		if name, ok := rec.StructuredFields[memory.FieldVaccineName].(string); ok {
			administered[name] = true
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan vaccination records: %w", err)
	}

	now := r.now()
	var pending []Due
	for _, e := range r.schedule {
		expected := birthDate.AddDate(0, 0, e.AgeDays)
		if expected.After(now) {
			continue
		}
		if administered[e.Vaccine] {
			continue
		}
		pending = append(pending, Due{Vaccine: e.Vaccine, ExpectedBy: expected})
	}

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].ExpectedBy.Equal(pending[j].ExpectedBy) {
			return pending[i].ExpectedBy.Before(pending[j].ExpectedBy)
		}
		return pending[i].Vaccine < pending[j].Vaccine
	})
	return pending, nil
}
