package driven

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// SourceConnector lists and fetches documents from a document source.
// Implementations include the local filesystem and Google Drive.
type SourceConnector interface {
	// Name returns the connector name for logging and reports.
	Name() string

	// List returns every document currently in the source.
	// Connectivity failures wrap domain.ErrSourceUnavailable.
	List(ctx context.Context) ([]domain.SourceEntry, error)

	// Fetch downloads one document. The returned payload is transient.
	// Connectivity failures wrap domain.ErrSourceUnavailable.
	Fetch(ctx context.Context, entry domain.SourceEntry) (*domain.SourceDocument, error)
}

// Watcher is implemented by connectors that can report source changes.
type Watcher interface {
	// Watch emits a signal whenever the source changes. The channel is
	// closed when ctx is cancelled. Bursts of events are coalesced.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
