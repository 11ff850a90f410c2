package driven

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// VectorStore persists embedded chunks and answers similarity queries.
// Upserts are idempotent: the same chunk ID replaces, never duplicates.
type VectorStore interface {
	// Upsert inserts or replaces chunks. The whole slice is written
	// atomically: either every chunk is visible afterwards or none is.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Query returns up to topK chunks ranked by descending cosine similarity.
	Query(ctx context.Context, embedding []float32, topK int) ([]domain.VectorHit, error)

	// Delete removes chunks by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, chunkIDs ...string) error

	// ChunkIDs returns the IDs of the chunks stored for a document.
	ChunkIDs(ctx context.Context, documentID string) ([]string, error)

	// Describe returns the embedding model the store is bound to.
	// A zero IndexInfo means the store has not been bound yet.
	Describe(ctx context.Context) (domain.IndexInfo, error)

	// Bind records the embedding model on first use and fails with
	// domain.ErrModelMismatch if the store is bound to another model.
	Bind(ctx context.Context, info domain.IndexInfo) error

	// Stats returns chunk and document counts.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
