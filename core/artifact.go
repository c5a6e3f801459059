package core

import "time"

// Kind is the semantic category of a memory record.
type Kind string

const (
	KindPrescription Kind = "prescription"
	KindReport       Kind = "report"
	KindVitals       Kind = "vitals"
	KindVaccine      Kind = "vaccine"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPrescription, KindReport, KindVitals, KindVaccine:
		return true
	}
	return false
}

// Modality is the physical form of an ingested artifact.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityPDF   Modality = "pdf"
	ModalityImage Modality = "image"
)

// Valid reports whether m is one of the known modalities.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityPDF, ModalityImage:
		return true
	}
	return false
}

// Document is a prescription or report artifact in its original form:
// typed text, a PDF, or a scanned image. The raw bytes are handed to a
// text extractor during ingestion and are not stored.
type Document struct {
	Kind     Kind
	Modality Modality
	Data     []byte
}

// Vitals is a structured vitals measurement. A zero value means the
// metric was not measured; at least one metric must be present.
type Vitals struct {
	Weight        float64 // kilograms
	Height        float64 // centimeters
	BloodPressure string  // e.g. "120/80"

	// RecordedAt is when the measurement was taken. Zero means "now".
	// Backfilled measurements keep their original timestamp so trends
	// stay chronological.
	RecordedAt time.Time
}

// Empty reports whether no metric is present.
func (v Vitals) Empty() bool {
	return v.Weight <= 0 && v.Height <= 0 && v.BloodPressure == ""
}

// Vaccine is a vaccination event: a named vaccine administered to a
// child on a given date.
type Vaccine struct {
	ChildName   string
	VaccineName string
	Date        time.Time
}
