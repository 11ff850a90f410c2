// Package xlsx reads spreadsheets such as fee schedules and exhibit lists.
package xlsx

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

// Name identifies the normaliser in logs and errors.
const Name = "xlsx"

// MIMEType is the content type of Excel workbooks.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Ensure Normaliser implements the interface.
var _ driven.OCRAdapter = (*Normaliser)(nil)

// Normaliser renders each sheet as one page of tab separated rows. The
// sheet name heads the page so citations can point at it.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string { return Name }

// Extract returns one page per sheet, in workbook order.
func (n *Normaliser) Extract(_ context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "open workbook: " + err.Error()}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Debug("xlsx: close %s: %v", doc.ID, cerr)
		}
	}()

	sheets := f.GetSheetList()
	pages := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, &domain.OCRError{Adapter: Name, Reason: "sheet " + sheet + ": " + err.Error()}
		}
		pages = append(pages, renderSheet(sheet, rows))
	}
	return pages, nil
}

func renderSheet(name string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, row := range rows {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
		if line == "" {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}
