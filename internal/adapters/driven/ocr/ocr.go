// Package ocr selects and combines the OCR adapters.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/juris/internal/adapters/driven/ocr/httpocr"
	"github.com/custodia-labs/juris/internal/adapters/driven/ocr/pdftext"
	"github.com/custodia-labs/juris/internal/adapters/driven/ocr/plaintext"
	"github.com/custodia-labs/juris/internal/adapters/driven/ocr/vision"
	"github.com/custodia-labs/juris/internal/connectors/google"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
	"github.com/custodia-labs/juris/internal/normalisers/docx"
	"github.com/custodia-labs/juris/internal/normalisers/eml"
	"github.com/custodia-labs/juris/internal/normalisers/html"
	"github.com/custodia-labs/juris/internal/normalisers/markdown"
	"github.com/custodia-labs/juris/internal/normalisers/xlsx"
)

// Ensure Router implements the interface.
var _ driven.OCRAdapter = (*Router)(nil)

// RouterName is the name of the automatic adapter.
const RouterName = "auto"

// MinLettersPerPage is the average number of letters per page below which
// a PDF text layer is treated as missing, as with scans that only carry
// a page number or a stamp as text.
const MinLettersPerPage = 20

// Router picks an adapter per document from its content type. PDFs are
// read from their text layer first and sent to the scanner adapter when
// the layer is missing or too thin. Born-digital formats go to their
// normaliser.
type Router struct {
	text    driven.OCRAdapter
	pdf     driven.OCRAdapter
	scanner driven.OCRAdapter
	formats map[DocumentKind]driven.OCRAdapter
}

// NewRouter creates a router. scanner may be nil, in which case images
// and scanned PDFs fail.
func NewRouter(scanner driven.OCRAdapter) *Router {
	return &Router{
		text:    plaintext.New(),
		pdf:     pdftext.New(),
		scanner: scanner,
		formats: map[DocumentKind]driven.OCRAdapter{
			KindWord:        docx.New(),
			KindSpreadsheet: xlsx.New(),
			KindEmail:       eml.New(),
			KindHTML:        html.New(),
			KindMarkdown:    markdown.New(),
		},
	}
}

// Name returns the router name and its scanner.
func (r *Router) Name() string {
	if r.scanner == nil {
		return RouterName
	}
	return RouterName + "/" + r.scanner.Name()
}

// Extract routes the document.
func (r *Router) Extract(ctx context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: RouterName, Reason: "no document"}
	}

	kind := Kind(doc)
	if adapter, ok := r.formats[kind]; ok {
		return adapter.Extract(ctx, doc)
	}

	switch kind {
	case KindText:
		return r.text.Extract(ctx, doc)
	case KindPDF:
		pages, err := r.pdf.Extract(ctx, doc)
		if err == nil && !sparse(pages) {
			return pages, nil
		}
		if err != nil && !errors.Is(err, domain.ErrOCRFailure) {
			return nil, err
		}
		if r.scanner == nil {
			if err != nil {
				return nil, err
			}
			return pages, nil
		}
		logger.Debug("ocr: %s has no usable text layer, using %s", doc.ID, r.scanner.Name())
		return r.scanner.Extract(ctx, doc)
	case KindImage:
		if r.scanner == nil {
			return nil, &domain.OCRError{Adapter: RouterName, Reason: "no OCR engine configured for images"}
		}
		return r.scanner.Extract(ctx, doc)
	default:
		return nil, &domain.OCRError{Adapter: RouterName, Reason: "unsupported content type " + doc.MimeType}
	}
}

// DocumentKind groups content types by how they are read.
type DocumentKind int

// Document kinds.
const (
	KindUnknown DocumentKind = iota
	KindText
	KindPDF
	KindImage
	KindWord
	KindSpreadsheet
	KindEmail
	KindHTML
	KindMarkdown
)

// Kind classifies a document by MIME type, then by name, then by
// sniffing its content.
func Kind(doc *domain.SourceDocument) DocumentKind {
	if kind := kindOfMIME(doc.MimeType); kind != KindUnknown {
		return kind
	}
	if kind := kindOfExt(filepath.Ext(doc.Name)); kind != KindUnknown {
		return kind
	}
	if len(doc.Content) == 0 {
		return KindUnknown
	}
	detected := mimetype.Detect(doc.Content)
	logger.Debug("ocr: %s sniffed as %s", doc.ID, detected.String())
	return kindOfMIME(detected.String())
}

func kindOfMIME(mimeType string) DocumentKind {
	mimeType = strings.ToLower(mimeType)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "application/pdf":
		return KindPDF
	case docx.MIMEType:
		return KindWord
	case xlsx.MIMEType:
		return KindSpreadsheet
	case "message/rfc822":
		return KindEmail
	case "text/html", "application/xhtml+xml":
		return KindHTML
	case "text/markdown", "text/x-markdown":
		return KindMarkdown
	}
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return KindText
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	}
	return KindUnknown
}

func kindOfExt(ext string) DocumentKind {
	switch strings.ToLower(ext) {
	case ".pdf":
		return KindPDF
	case ".txt", ".csv":
		return KindText
	case ".md", ".markdown":
		return KindMarkdown
	case ".docx":
		return KindWord
	case ".xlsx":
		return KindSpreadsheet
	case ".eml":
		return KindEmail
	case ".html", ".htm":
		return KindHTML
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".gif", ".bmp", ".webp":
		return KindImage
	}
	return KindUnknown
}

// sparse reports whether the pages carry too few letters to be a real
// text layer.
func sparse(pages []string) bool {
	if len(pages) == 0 {
		return true
	}
	letters := 0
	for _, p := range pages {
		for _, c := range p {
			if unicode.IsLetter(c) {
				letters++
			}
		}
	}
	return letters < MinLettersPerPage*len(pages)
}

// New builds the OCR adapter selected in settings.
func New(ctx context.Context, settings domain.OCRSettings, timeout time.Duration) (driven.OCRAdapter, error) {
	switch settings.Provider {
	case domain.OCRProviderPDFText:
		return pdftext.New(), nil
	case domain.OCRProviderPlaintext:
		return plaintext.New(), nil
	case domain.OCRProviderVision:
		return newVision(ctx, settings)
	case domain.OCRProviderHTTP:
		return newHTTP(settings, timeout)
	case domain.OCRProviderAuto, "":
		scanner, err := newScanner(ctx, settings, timeout)
		if err != nil {
			return nil, err
		}
		return NewRouter(scanner), nil
	default:
		return nil, fmt.Errorf("ocr provider %q: %w", settings.Provider, domain.ErrUnsupportedType)
	}
}

// newScanner prefers the HTTP service when configured, then Vision.
// Without either, only documents with text can be read.
func newScanner(ctx context.Context, settings domain.OCRSettings, timeout time.Duration) (driven.OCRAdapter, error) {
	switch {
	case settings.HTTPURL != "":
		return newHTTP(settings, timeout)
	case settings.CredentialsFile != "":
		return newVision(ctx, settings)
	default:
		logger.Debug("ocr: no scanner configured, images and scanned PDFs will fail")
		return nil, nil
	}
}

func newVision(ctx context.Context, settings domain.OCRSettings) (driven.OCRAdapter, error) {
	creds := google.Credentials{File: settings.CredentialsFile}
	adapter, err := vision.New(ctx, creds, settings.LanguageHints)
	if err != nil {
		return nil, fmt.Errorf("vision ocr: %w", err)
	}
	return adapter, nil
}

func newHTTP(settings domain.OCRSettings, timeout time.Duration) (driven.OCRAdapter, error) {
	if settings.HTTPURL == "" {
		return nil, fmt.Errorf("ocr http url: %w", domain.ErrNotConfigured)
	}
	return httpocr.New(settings.HTTPURL, timeout), nil
}
