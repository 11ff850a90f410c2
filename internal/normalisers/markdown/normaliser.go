// Package markdown reads Markdown notes, such as transcriptions and
// working notes kept alongside a case file.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/juris/internal/adapters/driven/ocr/plaintext"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Name identifies the normaliser in logs and errors.
const Name = "markdown"

// Ensure Normaliser implements the interface.
var _ driven.OCRAdapter = (*Normaliser)(nil)

// Normaliser removes Markdown formatting and keeps the text. Form feeds
// separate pages, as in plain text.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string { return Name }

// Extract returns the text of each page.
func (n *Normaliser) Extract(_ context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}
	text, err := plaintext.Decode(doc.Content)
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: err.Error()}
	}

	pages := strings.Split(text, "\f")
	for i, p := range pages {
		pages[i] = stripMarkdown(p)
	}
	return pages, nil
}

var (
	codeFence     = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	emphasis      = regexp.MustCompile(`(\*\*|__|\*)([^*\n]+?)(\*\*|__|\*)`)
	blockquote    = regexp.MustCompile(`(?m)^>[ \t]?`)
	rule          = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedList  = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common Markdown formatting. Code and image alt
// text are kept since they may quote the record.
func stripMarkdown(content string) string {
	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = rule.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
