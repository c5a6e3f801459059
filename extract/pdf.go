package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/swasthya/swasthya-go/core"
)

// PDF extracts plain text from PDF artifacts, page by page. Pages that
// carry no extractable text (scans embedded as images) are skipped;
// a PDF whose pages are all images therefore yields empty text rather
// than an error.
type PDF struct{}

func (PDF) Extract(_ context.Context, data []byte) (text string, err error) {
	// The parser panics on some malformed files instead of returning
	// an error; treat that the same as a parse failure.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: invalid or corrupted PDF: %v", core.ErrExtraction, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: invalid or corrupted PDF: %v", core.ErrExtraction, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
