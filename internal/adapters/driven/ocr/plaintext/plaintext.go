// Package plaintext reads text documents without OCR.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.OCRAdapter = (*Adapter)(nil)

// Name is the adapter name.
const Name = "plaintext"

// pageBreak separates pages in plain text exports.
const pageBreak = "\f"

// Adapter returns the payload as text, split into pages on form feeds.
// Payloads that are not valid UTF-8 are decoded as UTF-16 or Latin-1
// when detected, and as Windows-1252 otherwise, the usual encoding of
// text exported by older French office software.
type Adapter struct{}

// New creates a plain text adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return Name
}

// Extract decodes the payload.
func (a *Adapter) Extract(ctx context.Context, doc *domain.SourceDocument) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	text, err := Decode(doc.Content)
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: err.Error()}
	}
	return strings.Split(text, pageBreak), nil
}

// detectable lists the charsets accepted from detection. Other guesses
// on short Western text are unreliable.
var detectable = map[string]bool{
	"UTF-16LE":     true,
	"UTF-16BE":     true,
	"ISO-8859-1":   true,
	"ISO-8859-15":  true,
	"windows-1252": true,
}

// Decode returns content as UTF-8, stripping a byte order mark.
func Decode(content []byte) (string, error) {
	if utf8.Valid(content) {
		return strings.TrimPrefix(string(content), "\uFEFF"), nil
	}
	text, err := detect(content).NewDecoder().String(string(content))
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(text, "\uFEFF"), nil
}

func detect(content []byte) encoding.Encoding {
	result, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || !detectable[result.Charset] {
		return charmap.Windows1252
	}
	if enc, _ := charset.Lookup(result.Charset); enc != nil {
		return enc
	}
	return charmap.Windows1252
}
