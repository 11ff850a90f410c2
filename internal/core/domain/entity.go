package domain

import "sort"

// Mention records that an entity appears in a document.
type Mention struct {
	// DocumentID identifies the mentioning document.
	DocumentID string

	// Excerpt is the sourcing context of the mention.
	Excerpt string
}

// Entity is a named party aggregated across documents.
type Entity struct {
	// Key is the normalized name (case and diacritic insensitive).
	Key string

	// Name is the display form chosen among the observed variants.
	Name string

	// Variants lists every observed spelling, sorted.
	Variants []string

	// Mentions is the sorted set of mentions.
	Mentions []Mention
}

// Documents returns the distinct document IDs mentioning the entity, sorted.
func (e *Entity) Documents() []string {
	seen := make(map[string]struct{}, len(e.Mentions))
	var ids []string
	for _, m := range e.Mentions {
		if _, ok := seen[m.DocumentID]; ok {
			continue
		}
		seen[m.DocumentID] = struct{}{}
		ids = append(ids, m.DocumentID)
	}
	sort.Strings(ids)
	return ids
}

// EntityMap is a derived index from normalized entity name to mentions.
// It is always rebuilt from the full summary set and is never a source of truth.
type EntityMap struct {
	// Entities is keyed by normalized name.
	Entities map[string]*Entity
}

// Keys returns the entity keys in sorted order.
func (m *EntityMap) Keys() []string {
	keys := make([]string, 0, len(m.Entities))
	for k := range m.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entities.
func (m *EntityMap) Len() int {
	return len(m.Entities)
}
