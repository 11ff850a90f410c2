package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure SummaryStore implements the interface.
var _ driven.SummaryStore = (*SummaryStore)(nil)

// SummaryStore is an in-memory implementation of driven.SummaryStore.
// Summaries are copied on the way in and out.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries map[string]domain.Summary
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		summaries: make(map[string]domain.Summary),
	}
}

// Get retrieves the summary of a document.
func (s *SummaryStore) Get(_ context.Context, documentID string) (*domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneSummary(summary)
	return &out, nil
}

// Save stores or replaces the summary of a document.
func (s *SummaryStore) Save(_ context.Context, summary domain.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.DocumentID] = cloneSummary(summary)
	return nil
}

// Delete removes the summary of a document.
func (s *SummaryStore) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.summaries, documentID)
	return nil
}

// List returns every summary ordered by document ID.
func (s *SummaryStore) List(_ context.Context) ([]domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Summary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		out = append(out, cloneSummary(summary))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func cloneSummary(s domain.Summary) domain.Summary {
	s.Parties = slices.Clone(s.Parties)
	s.Sourcing = maps.Clone(s.Sourcing)
	return s
}
