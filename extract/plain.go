package extract

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/swasthya/swasthya-go/core"
)

// Plain handles typed-text artifacts. The bytes are the text; the only
// failure mode is non-UTF-8 input.
type Plain struct{}

func (Plain) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text artifact is not valid UTF-8", core.ErrExtraction)
	}
	return string(data), nil
}
