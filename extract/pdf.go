package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/h2non/filetype"
	"github.com/ledongthuc/pdf"
)

// PDF extracts the plain text of every page, each preceded by a
// "[Page n]" marker. Pages without text are omitted.
func PDF() Extractor {
	return Safe(Func(extractPDF))
}

func extractPDF(ctx context.Context, data []byte) (string, error) {
	if !filetype.Is(data, "pdf") {
		return "", malformed("pdf", ErrContentMismatch)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", malformed("pdf", err)
	}

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", malformed("pdf", fmt.Errorf("page %d: %w", i, err))
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Page %d]", i), text)
	}
	return strings.Join(parts, "\n"), nil
}
