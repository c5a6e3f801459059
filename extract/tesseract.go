package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/swasthya/swasthya-go/core"
)

// Tesseract extracts text from image artifacts by shelling out to the
// tesseract binary, the same way the reference deployment wrapped its
// OCR engine. A blank or illegible scan produces empty output, not an
// error.
type Tesseract struct {
	binary string
	lang   string
}

// NewTesseract locates the tesseract binary on PATH. lang defaults to
// "eng".
func NewTesseract(lang string) (*Tesseract, error) {
	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("%w: tesseract binary not found on PATH: %v", core.ErrExtraction, err)
	}
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{binary: bin, lang: lang}, nil
}

func (t *Tesseract) Extract(ctx context.Context, data []byte) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "-l", t.lang)
	cmd.Stdin = bytes.NewReader(data)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: tesseract: %v: %s", core.ErrExtraction, err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}
