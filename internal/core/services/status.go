package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

// StatusService reports on the index and removes single documents.
type StatusService struct {
	vectors   driven.VectorStore
	ledger    driven.WatermarkLedger
	summaries driven.SummaryStore
	runs      driven.RunHistory
}

// statusRuns is the number of recent runs included in a status report.
const statusRuns = 5

// NewStatusService creates a status service.
func NewStatusService(
	vectors driven.VectorStore,
	ledger driven.WatermarkLedger,
	summaries driven.SummaryStore,
) *StatusService {
	return &StatusService{
		vectors:   vectors,
		ledger:    ledger,
		summaries: summaries,
	}
}

// SetRunHistory enables recent runs in status reports.
func (s *StatusService) SetRunHistory(runs driven.RunHistory) {
	s.runs = runs
}

// Status collects ledger, summary and index statistics.
func (s *StatusService) Status(ctx context.Context) (*driving.IndexStatus, error) {
	info, err := s.vectors.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe index: %w", err)
	}
	stats, err := s.vectors.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	watermarks, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watermarks: %w", err)
	}
	summaries, err := s.summaries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	status := &driving.IndexStatus{
		Model:      info.Model,
		Dimensions: info.Dimensions,
		Documents:  len(watermarks),
		Summaries:  len(summaries),
		Index:      stats,
		Watermarks: watermarks,
	}
	for _, wm := range watermarks {
		if wm.LastSuccess.After(status.LastSuccess) {
			status.LastSuccess = wm.LastSuccess
		}
	}
	if s.runs != nil {
		runs, err := s.runs.List(ctx, statusRuns)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		status.Runs = runs
	}
	return status, nil
}

// Summary returns the stored summary of one document.
func (s *StatusService) Summary(ctx context.Context, documentID string) (*domain.Summary, error) {
	summary, err := s.summaries.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get summary %s: %w", documentID, err)
	}
	return summary, nil
}

// Forget removes a document from the index. The next ingestion run
// processes it again if it is still in the source.
func (s *StatusService) Forget(ctx context.Context, documentID string) error {
	if _, err := s.ledger.Get(ctx, documentID); err != nil {
		return fmt.Errorf("forget %s: %w", documentID, err)
	}
	n, err := forgetDocument(ctx, s.vectors, s.summaries, s.ledger, documentID)
	if err != nil {
		return fmt.Errorf("forget %s: %w", documentID, err)
	}
	logger.Info("forgot document %s", logger.KV("doc", documentID, "chunks", n))
	return nil
}
