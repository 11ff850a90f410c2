package postprocessors

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Metadata keys written by EntityTagger.
const (
	MetaDates       = "dates"
	MetaAmounts     = "amounts"
	MetaPersons     = "persons"
	MetaCompanies   = "companies"
	MetaCaseNumbers = "case_numbers"
)

// datePattern is also used to keep dates out of case numbers.
var datePattern = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)

// entityPatterns recognise common entities of French legal documents.
var entityPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{MetaDates, datePattern},
	{MetaAmounts, regexp.MustCompile(`\d+(?:[ .]\d{3})*(?:,\d+)?\s*(?:€|EUR\b|euros?\b)`)},
	{MetaPersons, regexp.MustCompile(`(?:\bM\.|\bMme\b|\bMe\b|\bDr\b)\s+\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)*`)},
	{MetaCompanies, regexp.MustCompile(`\b(?:SARL|SAS|SA|SCI|EURL)\s+\p{Lu}[\p{Lu} ]*\p{Lu}`)},
	{MetaCaseNumbers, regexp.MustCompile(`\b\d{2,4}/\d{2,6}\b`)},
}

// EntityTagger records pattern-matched entities of each chunk in its
// metadata, as "; "-separated unique values in order of appearance.
type EntityTagger struct{}

var _ driven.PostProcessor = (*EntityTagger)(nil)

// Name returns the processor name.
func (EntityTagger) Name() string {
	return "entities"
}

// Process tags chunks with extracted entities.
func (EntityTagger) Process(
	_ context.Context,
	_ *domain.NormalizedText,
	_ domain.SourceEntry,
	chunks []domain.Chunk,
) ([]domain.Chunk, error) {
	for i := range chunks {
		for key, values := range ExtractEntities(chunks[i].Content) {
			if chunks[i].Metadata == nil {
				chunks[i].Metadata = make(map[string]string)
			}
			chunks[i].Metadata[key] = strings.Join(values, "; ")
		}
	}
	return chunks, nil
}

// ExtractEntities returns the unique matches per entity kind.
// Kinds without matches are absent.
func ExtractEntities(text string) map[string][]string {
	out := make(map[string][]string)
	withoutDates := datePattern.ReplaceAllString(text, " ")
	for _, p := range entityPatterns {
		src := text
		if p.key == MetaCaseNumbers {
			src = withoutDates
		}
		seen := make(map[string]struct{})
		for _, m := range p.re.FindAllString(src, -1) {
			m = strings.TrimSpace(m)
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out[p.key] = append(out[p.key], m)
		}
	}
	return out
}
