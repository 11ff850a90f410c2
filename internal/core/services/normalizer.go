package services

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// Normalize turns raw per-page OCR text into canonical text.
//
// Each page is NFC-normalised, stripped of control and format characters,
// and its whitespace collapsed: runs of spaces become one space, lines are
// trimmed, and runs of blank lines become a single paragraph break. Pages
// are joined behind "[[page N]]" marker lines so chunks can be mapped back
// to physical pages. Blank pages keep their marker to preserve numbering.
//
// Normalize fails with domain.ErrEmptyDocument when every page is blank.
func Normalize(documentID string, pages []string) (*domain.NormalizedText, error) {
	cleaned := make([]string, len(pages))
	empty := true
	for i, p := range pages {
		cleaned[i] = cleanPage(p)
		if cleaned[i] != "" {
			empty = false
		}
	}
	if empty {
		return nil, fmt.Errorf("normalize %s: %w", documentID, domain.ErrEmptyDocument)
	}

	var b strings.Builder
	for i, p := range cleaned {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(domain.PageMarker(i + 1))
		if p != "" {
			b.WriteString("\n\n")
			b.WriteString(p)
		}
	}

	text := b.String()
	return &domain.NormalizedText{
		DocumentID:  documentID,
		Pages:       cleaned,
		Text:        text,
		ContentHash: domain.HashContent(text),
	}, nil
}

// cleanPage canonicalises the text of one page.
func cleanPage(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune('\n')
		case r == '\t' || r == '\f' || r == '\v':
			b.WriteRune(' ')
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), r == unicode.ReplacementChar:
			continue
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	var out []string
	pendingBreak := false
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			pendingBreak = len(out) > 0
			continue
		}
		// A page must not forge a marker for another page.
		if domain.IsPageMarker(line) {
			line = strings.Replace(line, "[[", "[ [", 1)
		}
		if pendingBreak {
			out = append(out, "")
			pendingBreak = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
