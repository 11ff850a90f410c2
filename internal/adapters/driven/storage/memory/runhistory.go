package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure RunHistory implements the interface.
var _ driven.RunHistory = (*RunHistory)(nil)

// RunHistory is an in-memory implementation of driven.RunHistory.
// Runs are kept in insertion order.
type RunHistory struct {
	mu   sync.RWMutex
	runs []domain.RunRecord
}

// NewRunHistory creates an empty run history.
func NewRunHistory() *RunHistory {
	return &RunHistory{}
}

// Record appends a run.
func (h *RunHistory) Record(_ context.Context, run domain.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	return nil
}

// List returns up to limit runs, most recent first. A limit of zero or
// less returns every run.
func (h *RunHistory) List(_ context.Context, limit int) ([]domain.RunRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := slices.Clone(h.runs)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune keeps only the keep most recent runs.
func (h *RunHistory) Prune(_ context.Context, keep int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if len(h.runs) > keep {
		h.runs = slices.Clone(h.runs[len(h.runs)-keep:])
	}
	return nil
}
