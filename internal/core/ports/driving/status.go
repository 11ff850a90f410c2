package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// StatusService reports index state and removes documents.
type StatusService interface {
	// Status returns counts from the ledger, summaries and vector store.
	Status(ctx context.Context) (*IndexStatus, error)

	// Summary returns the stored summary of a document.
	Summary(ctx context.Context, documentID string) (*domain.Summary, error)

	// Forget removes a document's chunks, summary and watermark.
	Forget(ctx context.Context, documentID string) error
}

// IndexStatus summarises the persisted state.
type IndexStatus struct {
	// Model is the embedding model the index is bound to.
	Model string

	// Dimensions is the bound vector size.
	Dimensions int

	// Documents is the number of documents with a watermark.
	Documents int

	// Summaries is the number of stored summaries.
	Summaries int

	// Index holds vector store counts.
	Index domain.IndexStats

	// LastSuccess is the most recent watermark timestamp.
	LastSuccess time.Time

	// Watermarks lists every watermark ordered by document ID.
	Watermarks []domain.Watermark

	// Runs lists recent ingestion runs, most recent first. Empty when no
	// run history is configured.
	Runs []domain.RunRecord
}
