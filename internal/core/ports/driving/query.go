package driving

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// QueryEngine answers questions from the indexed documents.
type QueryEngine interface {
	// Answer retrieves relevant chunks and asks every configured model.
	// A result with NoContext set and a nil error means nothing passed
	// the relevance threshold; an error means the system failed.
	Answer(ctx context.Context, question string, opts domain.QueryOptions) (*domain.QueryResult, error)

	// Models returns the configured model names in fan-out order.
	Models() []string
}
