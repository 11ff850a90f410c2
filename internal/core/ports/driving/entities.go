package driving

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// EntityService exposes the entity map rebuilt from stored summaries.
type EntityService interface {
	// Build recomputes the full entity map.
	Build(ctx context.Context) (*domain.EntityMap, error)

	// Lookup returns the entity matching name after normalization,
	// or domain.ErrNotFound.
	Lookup(ctx context.Context, name string) (*domain.Entity, error)

	// Search returns entities whose normalized key contains the
	// normalized query, sorted by key.
	Search(ctx context.Context, query string) ([]*domain.Entity, error)
}
