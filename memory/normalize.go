package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/swasthya/swasthya-go/core"
	"github.com/swasthya/swasthya-go/extract"
)

// Normalizer reduces any ingestible artifact to a canonical text
// payload plus structured metadata. It is a pure function over its
// input and the extraction collaborator.
type Normalizer struct {
	extractors *extract.Set
}

// NewNormalizer builds a Normalizer over the given extractor set.
func NewNormalizer(set *extract.Set) *Normalizer {
	if set == nil {
		set = extract.NewSet()
	}
	return &Normalizer{extractors: set}
}

// NormalizeDocument extracts and trims a document artifact's text.
// Empty or whitespace-only extraction (a blank scan) fails with
// core.ErrEmptyExtraction; no record must be created in that case.
func (n *Normalizer) NormalizeDocument(ctx context.Context, doc core.Document) (string, map[string]any, error) {
	if !doc.Kind.Valid() {
		return "", nil, fmt.Errorf("%w: unknown kind %q", core.ErrExtraction, doc.Kind)
	}
	if !doc.Modality.Valid() {
		return "", nil, fmt.Errorf("%w: unknown modality %q", core.ErrExtraction, doc.Modality)
	}

	text, err := n.extractors.Extract(ctx, doc.Data, doc.Modality)
	if err != nil {
		return "", nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, fmt.Errorf("%w: %s %s artifact", core.ErrEmptyExtraction, doc.Modality, doc.Kind)
	}

	fields := map[string]any{"characters": len(text)}
	return text, fields, nil
}

// NormalizeVitals serializes the present metrics into a deterministic
// human-readable sentence, so a natural-language similarity query can
// match structured data. Raw values go into the structured fields.
func NormalizeVitals(v core.Vitals) (string, map[string]any, error) {
	if v.Empty() {
		return "", nil, fmt.Errorf("%w: vitals artifact has no measurements", core.ErrEmptyExtraction)
	}

	// Measurements taken at a known time carry it in the sentence, so
	// a similarity hit can answer "when" without the structured fields.
	var suffix string
	if !v.RecordedAt.IsZero() {
		suffix = " on " + v.RecordedAt.UTC().Format(time.DateOnly)
	}

	var parts []string
	fields := make(map[string]any, 3)
	if v.Weight > 0 {
		parts = append(parts, "Weight recorded: "+formatMetric(v.Weight)+" kg"+suffix)
		fields[FieldWeight] = v.Weight
	}
	if v.Height > 0 {
		parts = append(parts, "Height recorded: "+formatMetric(v.Height)+" cm"+suffix)
		fields[FieldHeight] = v.Height
	}
	if v.BloodPressure != "" {
		parts = append(parts, "Blood pressure recorded: "+v.BloodPressure+suffix)
		fields[FieldBloodPressure] = v.BloodPressure
	}
	return strings.Join(parts, ". ") + ".", fields, nil
}

// NormalizeVaccine serializes a vaccination event into a deterministic
// sentence and keeps the three fields structured for schedule lookups.
func NormalizeVaccine(v core.Vaccine) (string, map[string]any, error) {
	if v.ChildName == "" || v.VaccineName == "" || v.Date.IsZero() {
		return "", nil, fmt.Errorf("%w: vaccine artifact needs child name, vaccine name and date", core.ErrEmptyExtraction)
	}

	date := v.Date.UTC().Format(time.DateOnly)
	text := fmt.Sprintf("Vaccine %s administered to %s on %s.", v.VaccineName, v.ChildName, date)
	fields := map[string]any{
		FieldChildName:   v.ChildName,
		FieldVaccineName: v.VaccineName,
		FieldDate:        date,
	}
	return text, fields, nil
}

// formatMetric renders a measurement with no trailing zeros, so the
// same value always serializes to the same sentence.
func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
