// Package html reads the visible text of HTML documents, such as court
// portal pages or e-mails saved as web pages.
package html

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Name identifies the normaliser in logs and errors.
const Name = "html"

// Ensure Normaliser implements the interface.
var _ driven.OCRAdapter = (*Normaliser)(nil)

// Normaliser strips markup and returns the text as a single page.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string { return Name }

// Extract returns the visible text. The character set is taken from the
// content type, then from <meta> tags.
func (n *Normaliser) Extract(_ context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	text, err := Text(doc.Content, doc.MimeType)
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: err.Error()}
	}
	return []string{text}, nil
}

const (
	skipped = "head, script, style, noscript, svg, template"
	blocks  = "p, div, h1, h2, h3, h4, h5, h6, li, tr, blockquote, pre, table, section, article, header, footer, address"
	cells   = "td, th"
)

var multiSpaces = regexp.MustCompile(`[ \t\p{Zs}]+`)

// Text converts an HTML payload to plain text with one line per block
// element. contentType may be empty.
func Text(content []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(content), contentType)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", err
	}

	doc.Find(skipped).Remove()
	doc.Find("br, hr").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(textNode("\n"))
	})
	doc.Find(cells).Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(textNode("\t"))
	})
	doc.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		s.PrependNodes(textNode("\n"))
		s.AppendNodes(textNode("\n"))
	})

	lines := strings.Split(doc.Text(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}

func textNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}
