package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swasthya/swasthya-go/core"
	"github.com/swasthya/swasthya-go/extract"
	"github.com/swasthya/swasthya-go/memory"
)

// stubExtractor returns fixed text, standing in for the black-box OCR
// collaborator.
type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(context.Context, []byte) (string, error) {
	return s.text, s.err
}

func TestNormalizeDocumentTrimsExtraction(t *testing.T) {
	set := extract.NewSet()
	set.Register(core.ModalityImage, stubExtractor{text: "  Paracetamol 500mg twice daily  \n"})
	n := memory.NewNormalizer(set)

	text, fields, err := n.NormalizeDocument(context.Background(), core.Document{
		Kind:     core.KindPrescription,
		Modality: core.ModalityImage,
		Data:     []byte{0x01},
	})
	if err != nil {
		t.Fatalf("NormalizeDocument: %v", err)
	}
	if text != "Paracetamol 500mg twice daily" {
		t.Errorf("canonical text = %q", text)
	}
	if got := fields["characters"]; got != len(text) {
		t.Errorf("characters field = %v, want %d", got, len(text))
	}
}

func TestNormalizeDocumentRejectsBlankExtraction(t *testing.T) {
	set := extract.NewSet()
	set.Register(core.ModalityImage, stubExtractor{text: "   \n\t "})
	n := memory.NewNormalizer(set)

	_, _, err := n.NormalizeDocument(context.Background(), core.Document{
		Kind:     core.KindReport,
		Modality: core.ModalityImage,
		Data:     []byte{0x01},
	})
	if !errors.Is(err, core.ErrEmptyExtraction) {
		t.Fatalf("expected ErrEmptyExtraction, got %v", err)
	}
}

func TestNormalizeDocumentRejectsUnknownKind(t *testing.T) {
	n := memory.NewNormalizer(extract.NewSet())
	_, _, err := n.NormalizeDocument(context.Background(), core.Document{
		Kind:     core.Kind("diary"),
		Modality: core.ModalityText,
		Data:     []byte("hello"),
	})
	if !errors.Is(err, core.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestNormalizeVitalsDeterministicSentence(t *testing.T) {
	v := core.Vitals{Weight: 56.5, Height: 170, BloodPressure: "120/80"}

	first, fields, err := memory.NormalizeVitals(v)
	if err != nil {
		t.Fatalf("NormalizeVitals: %v", err)
	}
	want := "Weight recorded: 56.5 kg. Height recorded: 170 cm. Blood pressure recorded: 120/80."
	if first != want {
		t.Errorf("sentence = %q, want %q", first, want)
	}
	if fields[memory.FieldWeight] != 56.5 || fields[memory.FieldHeight] != 170.0 || fields[memory.FieldBloodPressure] != "120/80" {
		t.Errorf("structured fields = %v", fields)
	}

	second, _, _ := memory.NormalizeVitals(v)
	if first != second {
		t.Errorf("serialization is not deterministic: %q vs %q", first, second)
	}
}

func TestNormalizeVitalsCarriesMeasurementDate(t *testing.T) {
	v := core.Vitals{
		Weight:        56.5,
		BloodPressure: "120/80",
		RecordedAt:    time.Date(2024, 1, 5, 18, 30, 0, 0, time.UTC),
	}
	text, _, err := memory.NormalizeVitals(v)
	if err != nil {
		t.Fatalf("NormalizeVitals: %v", err)
	}
	want := "Weight recorded: 56.5 kg on 2024-01-05. Blood pressure recorded: 120/80 on 2024-01-05."
	if text != want {
		t.Errorf("sentence = %q, want %q", text, want)
	}
}

func TestNormalizeVitalsPartialFields(t *testing.T) {
	text, fields, err := memory.NormalizeVitals(core.Vitals{BloodPressure: "130/85"})
	if err != nil {
		t.Fatalf("NormalizeVitals: %v", err)
	}
	if text != "Blood pressure recorded: 130/85." {
		t.Errorf("sentence = %q", text)
	}
	if _, ok := fields[memory.FieldWeight]; ok {
		t.Error("absent weight must not appear in structured fields")
	}
}

func TestNormalizeVitalsRejectsEmpty(t *testing.T) {
	_, _, err := memory.NormalizeVitals(core.Vitals{})
	if !errors.Is(err, core.ErrEmptyExtraction) {
		t.Fatalf("expected ErrEmptyExtraction, got %v", err)
	}
}

func TestNormalizeVaccine(t *testing.T) {
	text, fields, err := memory.NormalizeVaccine(core.Vaccine{
		ChildName:   "Asha",
		VaccineName: "BCG",
		Date:        time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NormalizeVaccine: %v", err)
	}
	if text != "Vaccine BCG administered to Asha on 2024-03-15." {
		t.Errorf("sentence = %q", text)
	}
	if fields[memory.FieldChildName] != "Asha" || fields[memory.FieldVaccineName] != "BCG" || fields[memory.FieldDate] != "2024-03-15" {
		t.Errorf("structured fields = %v", fields)
	}
}

func TestNormalizeVaccineRejectsMissingFields(t *testing.T) {
	_, _, err := memory.NormalizeVaccine(core.Vaccine{ChildName: "Asha"})
	if !errors.Is(err, core.ErrEmptyExtraction) {
		t.Fatalf("expected ErrEmptyExtraction, got %v", err)
	}
}
