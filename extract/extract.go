// Package extract turns raw artifact bytes into plain text.
//
// Extractors are black boxes from the rest of the system's point of
// view: the memory engine only cares that bytes go in and text comes
// out. Malformed input fails with core.ErrExtraction; blank-but-valid
// input returns empty text, which the normalizer rejects.
package extract

import (
	"context"
	"fmt"

	"github.com/swasthya/swasthya-go/core"
)

// Extractor converts one artifact modality's bytes to plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Set dispatches extraction by artifact modality.
type Set struct {
	byModality map[core.Modality]Extractor
}

// NewSet returns a Set with the text and PDF extractors registered.
// Image extraction needs a local tesseract install, so it is opt-in
// via Register.
func NewSet() *Set {
	return &Set{byModality: map[core.Modality]Extractor{
		core.ModalityText: Plain{},
		core.ModalityPDF:  PDF{},
	}}
}

// Register installs an extractor for a modality, replacing any
// previous one.
func (s *Set) Register(m core.Modality, e Extractor) {
	s.byModality[m] = e
}

// Extract runs the extractor registered for the given modality.
func (s *Set) Extract(ctx context.Context, data []byte, m core.Modality) (string, error) {
	e, ok := s.byModality[m]
	if !ok {
		return "", fmt.Errorf("%w: no extractor for modality %q", core.ErrExtraction, m)
	}
	return e.Extract(ctx, data)
}
