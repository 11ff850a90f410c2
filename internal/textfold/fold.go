// Package textfold folds text for comparison and display: diacritics are
// removed, case is folded, and path segments are reduced to portable ASCII.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSegmentLength bounds the length of a folded path segment.
const MaxSegmentLength = 100

// StripDiacritics removes combining marks: "Hélène" becomes "Helene".
func StripDiacritics(s string) string {
	// Transformers keep state, so the chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold removes diacritics and folds case.
func Fold(s string) string {
	return cases.Fold().String(StripDiacritics(s))
}

// Segment turns one path segment into a portable ASCII name: diacritics
// removed, characters outside [A-Za-z0-9._-] replaced by '_', repeated
// underscores collapsed, and the result capped at MaxSegmentLength.
func Segment(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range StripDiacritics(strings.TrimSpace(s)) {
		ok := r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_')
		if !ok {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > MaxSegmentLength {
		out = out[:MaxSegmentLength]
	}
	return out
}
