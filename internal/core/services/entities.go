package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/textfold"
)

// Ensure EntityService implements the interface.
var _ driving.EntityService = (*EntityService)(nil)

// NormalizeEntityName returns the comparison key of an entity name:
// diacritics removed, case folded, whitespace collapsed, surrounding
// punctuation trimmed. "Mme  Hélène DURAND." and "mme helene durand"
// share a key.
func NormalizeEntityName(name string) string {
	key := strings.Join(strings.Fields(textfold.Fold(name)), " ")
	return strings.TrimFunc(key, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// BuildEntityMap folds every summary's parties into an entity map.
//
// Names are merged when their normalized keys are equal. Mentions are a
// set of (document, excerpt) pairs, so folding the same summaries twice
// changes nothing. The output does not depend on input order: variants and
// mentions are sorted and the display name is the smallest variant.
func BuildEntityMap(summaries []domain.Summary) *domain.EntityMap {
	type accumulator struct {
		variants map[string]struct{}
		mentions map[domain.Mention]struct{}
	}
	accs := make(map[string]*accumulator)

	for i := range summaries {
		s := &summaries[i]
		sentences := splitSentences(s.EssentialFacts)
		for _, party := range s.Parties {
			key := NormalizeEntityName(party)
			if key == "" {
				continue
			}
			acc, ok := accs[key]
			if !ok {
				acc = &accumulator{
					variants: make(map[string]struct{}),
					mentions: make(map[domain.Mention]struct{}),
				}
				accs[key] = acc
			}
			acc.variants[strings.Join(strings.Fields(party), " ")] = struct{}{}
			acc.mentions[domain.Mention{
				DocumentID: s.DocumentID,
				Excerpt:    mentionExcerpt(key, sentences, s),
			}] = struct{}{}
		}
	}

	m := &domain.EntityMap{Entities: make(map[string]*domain.Entity, len(accs))}
	for key, acc := range accs {
		variants := make([]string, 0, len(acc.variants))
		for v := range acc.variants {
			variants = append(variants, v)
		}
		sort.Strings(variants)

		mentions := make([]domain.Mention, 0, len(acc.mentions))
		for mention := range acc.mentions {
			mentions = append(mentions, mention)
		}
		sort.Slice(mentions, func(i, j int) bool {
			if mentions[i].DocumentID != mentions[j].DocumentID {
				return mentions[i].DocumentID < mentions[j].DocumentID
			}
			return mentions[i].Excerpt < mentions[j].Excerpt
		})

		m.Entities[key] = &domain.Entity{
			Key:      key,
			Name:     variants[0],
			Variants: variants,
			Mentions: mentions,
		}
	}
	return m
}

// mentionExcerpt picks the sourcing context of a mention: the first
// sentence of the essential facts naming the entity, else the file name,
// else the document ID.
func mentionExcerpt(key string, sentences []string, s *domain.Summary) string {
	for _, sentence := range sentences {
		if strings.Contains(NormalizeEntityName(sentence), key) {
			return sentence
		}
	}
	if name := s.Sourcing[domain.SourcingFileName]; name != "" {
		return name
	}
	return s.DocumentID
}

// splitSentences splits prose on sentence terminators and line breaks.
func splitSentences(text string) []string {
	var out []string
	start := 0
	rs := []rune(text)
	flush := func(end int) {
		if s := strings.TrimSpace(string(rs[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}
	for i, r := range rs {
		switch r {
		case '\n':
			flush(i)
		case '.':
			if (i+1 == len(rs) || unicode.IsSpace(rs[i+1])) && !isAbbreviation(rs[start:i]) {
				flush(i + 1)
			}
		case '!', '?':
			if i+1 == len(rs) || unicode.IsSpace(rs[i+1]) {
				flush(i + 1)
			}
		}
	}
	flush(len(rs))
	return out
}

// isAbbreviation reports whether the last word of head is a short
// capitalised title such as "M", "Mme" or "Dr", so "M. Durand" is not split.
func isAbbreviation(head []rune) bool {
	i := len(head)
	for i > 0 && !unicode.IsSpace(head[i-1]) {
		i--
	}
	word := head[i:]
	return len(word) > 0 && len(word) <= 3 && unicode.IsUpper(word[0])
}

// EntityService rebuilds the entity map from stored summaries on demand.
// The map is never cached: it is a disposable artifact of the summary set.
type EntityService struct {
	summaries driven.SummaryStore
}

// NewEntityService creates an entity service over a summary store.
func NewEntityService(summaries driven.SummaryStore) *EntityService {
	return &EntityService{summaries: summaries}
}

// Build recomputes the full entity map.
func (s *EntityService) Build(ctx context.Context) (*domain.EntityMap, error) {
	all, err := s.summaries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return BuildEntityMap(all), nil
}

// Lookup returns the entity matching name after normalization.
func (s *EntityService) Lookup(ctx context.Context, name string) (*domain.Entity, error) {
	m, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := m.Entities[NormalizeEntityName(name)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// Search returns entities whose key contains the normalized query.
// An empty query returns every entity.
func (s *EntityService) Search(ctx context.Context, query string) ([]*domain.Entity, error) {
	m, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	q := NormalizeEntityName(query)
	var out []*domain.Entity
	for _, key := range m.Keys() {
		if strings.Contains(key, q) {
			out = append(out, m.Entities[key])
		}
	}
	return out, nil
}
