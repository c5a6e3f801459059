// Package trend extracts chronological series of named vitals from the
// memory store's metadata index.
package trend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/swasthya/swasthya-go/core"
	"github.com/swasthya/swasthya-go/memory"
)

// Scanner is the read-only slice of the memory store the extractor
// needs.
type Scanner interface {
	Scan(ctx context.Context, filter memory.Filter, fn func(memory.MemoryRecord) bool) error
}

// Point is one measurement in a trend series.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Extractor projects vitals records into ordered series.
type Extractor struct {
	store Scanner
}

// NewExtractor builds an Extractor over the store.
func NewExtractor(store Scanner) *Extractor {
	return &Extractor{store: store}
}

// MetricTrend returns (timestamp, value) for every vitals record that
// carries the named metric, sorted ascending by timestamp. Records
// without the metric are skipped silently: vitals entries may record
// only a subset of fields.
func (e *Extractor) MetricTrend(ctx context.Context, metric string) ([]Point, error) {
	var points []Point
	filter := memory.Filter{memory.FilterKind: string(core.KindVitals)}
	err := e.store.Scan(ctx, filter, func(rec memory.MemoryRecord) bool {
		if v, ok := numericField(rec.StructuredFields, metric); ok {
			points = append(points, Point{Timestamp: rec.CreatedAt, Value: v})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan vitals records: %w", err)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

// WeightTrend is the weight series.
func (e *Extractor) WeightTrend(ctx context.Context) ([]Point, error) {
	return e.MetricTrend(ctx, memory.FieldWeight)
}

// numericField reads a metric that may have round-tripped through JSON
// (float64) or still hold its original Go type.
func numericField(fields map[string]any, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
