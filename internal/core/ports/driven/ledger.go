package driven

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// WatermarkLedger persists the processed watermark of each document.
// Callers serialise writes per document ID; implementations must be safe
// for concurrent use across different IDs.
type WatermarkLedger interface {
	// Get returns the watermark of a document, or domain.ErrNotFound.
	Get(ctx context.Context, documentID string) (*domain.Watermark, error)

	// Put stores or replaces a watermark.
	Put(ctx context.Context, wm domain.Watermark) error

	// Delete removes a watermark. Unknown IDs are ignored.
	Delete(ctx context.Context, documentID string) error

	// List returns every watermark ordered by document ID.
	List(ctx context.Context) ([]domain.Watermark, error)
}

// SummaryStore persists one summary per document.
type SummaryStore interface {
	// Get returns the summary of a document, or domain.ErrNotFound.
	Get(ctx context.Context, documentID string) (*domain.Summary, error)

	// Save stores or replaces the summary of a document.
	Save(ctx context.Context, summary domain.Summary) error

	// Delete removes a summary. Unknown IDs are ignored.
	Delete(ctx context.Context, documentID string) error

	// List returns every summary ordered by document ID.
	List(ctx context.Context) ([]domain.Summary, error)
}

// RunHistory keeps a bounded log of ingestion runs.
type RunHistory interface {
	// Record appends a run.
	Record(ctx context.Context, run domain.RunRecord) error

	// List returns up to limit runs, most recent first.
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Prune keeps only the keep most recent runs.
	Prune(ctx context.Context, keep int) error
}

// DocumentCommit is everything persisted for one ingested document.
type DocumentCommit struct {
	// Chunks replace every chunk stored for the document.
	Chunks []domain.Chunk

	Summary   domain.Summary
	Watermark domain.Watermark
}

// DocumentCommitter persists an ingested document as a unit: afterwards
// either the new chunks, summary and watermark are all visible, or the
// document's previous state is unchanged.
type DocumentCommitter interface {
	// CommitDocument writes c for c.Watermark.DocumentID. Stored chunks of
	// the document absent from c.Chunks are removed.
	CommitDocument(ctx context.Context, c DocumentCommit) error
}
