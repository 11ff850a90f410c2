// Package pdftext reads the embedded text layer of PDF documents.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.OCRAdapter = (*Adapter)(nil)

// Name is the adapter name.
const Name = "pdftext"

// Adapter extracts the text layer page by page. Scanned PDFs without a
// text layer fail with an OCR error so another adapter can take over.
type Adapter struct{}

// New creates a PDF text layer adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return Name
}

// Extract returns the text of every page, including blank ones.
func (a *Adapter) Extract(ctx context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	reader, err := open(doc.Content)
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages := make([]string, n)
	hasText := false
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &domain.OCRError{Adapter: Name, Reason: fmt.Sprintf("page %d: %v", i, err)}
		}
		pages[i-1] = text
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
	}

	if !hasText {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no text layer"}
	}
	return pages, nil
}

// PageCount returns the number of pages of a PDF.
func PageCount(content []byte) (int, error) {
	reader, err := open(content)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

// open parses a PDF. The parser panics on some malformed files.
func open(content []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = &domain.OCRError{Adapter: Name, Reason: fmt.Sprintf("malformed pdf: %v", r)}
		}
	}()

	reader, err = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: err.Error()}
	}
	if reader.NumPage() == 0 {
		return nil, &domain.OCRError{Adapter: Name, Reason: "pdf has no pages"}
	}
	return reader, nil
}
