package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/swasthya/swasthya-go/core"
)

// Structured-field keys shared by records, filters, and the derived
// reasoners.
const (
	FieldChildName     = "child_name"
	FieldVaccineName   = "vaccine_name"
	FieldDate          = "date"
	FieldWeight        = "weight"
	FieldHeight        = "height"
	FieldBloodPressure = "blood_pressure"
)

// MemoryRecord is the unit of storage: one normalized artifact with
// its embedding and kind-dependent structured fields. Records are
// immutable once inserted.
type MemoryRecord struct {
	ID               string
	Kind             core.Kind
	Modality         core.Modality
	CanonicalText    string
	Embedding        []float32
	StructuredFields map[string]any
	CreatedAt        time.Time
}

// NewRecord creates a record with a fresh ID and the current UTC time.
// The embedding is attached by the caller once the canonical text has
// been embedded.
func NewRecord(kind core.Kind, modality core.Modality, canonicalText string, fields map[string]any) MemoryRecord {
	return MemoryRecord{
		ID:               uuid.New().String(),
		Kind:             kind,
		Modality:         modality,
		CanonicalText:    canonicalText,
		StructuredFields: fields,
		CreatedAt:        time.Now().UTC(),
	}
}

// Copy returns a deep copy. Stores hand out copies so no caller ever
// holds a mutable reference into stored state.
func (r MemoryRecord) Copy() MemoryRecord {
	out := r
	if r.Embedding != nil {
		out.Embedding = append([]float32(nil), r.Embedding...)
	}
	if r.StructuredFields != nil {
		out.StructuredFields = make(map[string]any, len(r.StructuredFields))
		for k, v := range r.StructuredFields {
			out.StructuredFields[k] = v
		}
	}
	return out
}

// IndexMetadata flattens a record's filterable attributes into the
// string map used by metadata indexes (kind, modality, and any string
// structured fields such as child_name or vaccine_name).
func IndexMetadata(r MemoryRecord) map[string]string {
	md := map[string]string{
		"kind":     string(r.Kind),
		"modality": string(r.Modality),
	}
	for k, v := range r.StructuredFields {
		if s, ok := v.(string); ok {
			md[k] = s
		}
	}
	return md
}
