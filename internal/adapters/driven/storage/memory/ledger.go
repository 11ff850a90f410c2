package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure WatermarkLedger implements the interface.
var _ driven.WatermarkLedger = (*WatermarkLedger)(nil)

// WatermarkLedger is an in-memory implementation of driven.WatermarkLedger.
type WatermarkLedger struct {
	mu         sync.RWMutex
	watermarks map[string]domain.Watermark
}

// NewWatermarkLedger creates a new in-memory watermark ledger.
func NewWatermarkLedger() *WatermarkLedger {
	return &WatermarkLedger{
		watermarks: make(map[string]domain.Watermark),
	}
}

// Get retrieves the watermark of a document.
func (l *WatermarkLedger) Get(_ context.Context, documentID string) (*domain.Watermark, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	wm, ok := l.watermarks[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &wm, nil
}

// Put stores or replaces a watermark.
func (l *WatermarkLedger) Put(_ context.Context, wm domain.Watermark) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watermarks[wm.DocumentID] = wm
	return nil
}

// Delete removes the watermark of a document.
func (l *WatermarkLedger) Delete(_ context.Context, documentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.watermarks, documentID)
	return nil
}

// List returns every watermark ordered by document ID.
func (l *WatermarkLedger) List(_ context.Context) ([]domain.Watermark, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Watermark, 0, len(l.watermarks))
	for _, wm := range l.watermarks {
		out = append(out, wm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}
