package driven

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// PostProcessor turns normalized text into chunks or enriches chunks.
// PostProcessors are chained in a pipeline (chunking, tagging).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// If the processor creates chunks (the chunker), it receives nil and returns new chunks.
	// Otherwise it receives chunks and returns them, possibly modified.
	Process(
		ctx context.Context,
		doc *domain.NormalizedText,
		entry domain.SourceEntry,
		chunks []domain.Chunk,
	) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.NormalizedText, entry domain.SourceEntry) ([]domain.Chunk, error)
}
