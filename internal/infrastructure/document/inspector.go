// Package document validates uploaded files beyond their declared media
// type.
package document

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Inspector deep-checks uploads before the pipeline spends a backend call
// on them. PDFs must parse and contain at least one page; images pass
// through untouched (the recognition backend judges their content).
type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

func (Inspector) Inspect(filename, mimeType string, data []byte) (int, error) {
	if mimeType != "application/pdf" {
		return 0, nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("unreadable pdf %q: %w", filename, err)
	}
	pages := reader.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("pdf %q has no pages", filename)
	}
	return pages, nil
}
