package driving

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// Ingestor drives documents from the source into the vector store.
type Ingestor interface {
	// IngestAll processes every listed document with bounded concurrency.
	// Per-document failures are reported in the BatchReport; the returned
	// error is reserved for run-level failures (listing, fatal config).
	IngestAll(ctx context.Context, opts IngestOptions) (*domain.BatchReport, error)

	// IngestOne processes a single listed document.
	IngestOne(ctx context.Context, entry domain.SourceEntry) domain.IngestOutcome
}

// IngestOptions tunes one ingestion run.
type IngestOptions struct {
	// Workers overrides the configured worker count when positive.
	Workers int

	// Only restricts the run to these document IDs. Pruning is disabled
	// when set.
	Only []string

	// Force ignores watermarks and stored summaries and re-processes
	// every document.
	Force bool

	// OnOutcome is called after each document finishes. It may be
	// called concurrently.
	OnOutcome func(domain.IngestOutcome)
}

// IngestRunner runs ingestion batches and records each one in the run
// history.
type IngestRunner interface {
	// RunOnce runs a single batch.
	RunOnce(ctx context.Context, opts IngestOptions) (*domain.BatchReport, error)

	// Watch runs a batch now and again after every trigger until ctx is
	// cancelled or triggers is closed.
	Watch(ctx context.Context, triggers <-chan struct{}, opts IngestOptions) error
}
