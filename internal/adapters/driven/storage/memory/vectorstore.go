package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore with
// exhaustive cosine search.
type VectorStore struct {
	mu     sync.RWMutex
	info   domain.IndexInfo
	chunks map[string]domain.Chunk
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		chunks: make(map[string]domain.Chunk),
	}
}

// Upsert inserts or replaces chunks. Nothing is written when any chunk
// has the wrong dimensionality.
func (s *VectorStore) Upsert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(chunks); err != nil {
		return err
	}
	for _, c := range chunks {
		s.chunks[c.ID] = cloneChunk(c, true)
	}
	return nil
}

// validate checks chunks against the binding. Callers hold mu.
func (s *VectorStore) validate(chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding: %w", c.ID, domain.ErrInvalidInput)
		}
		if s.info.Dimensions > 0 && len(c.Embedding) != s.info.Dimensions {
			return fmt.Errorf("chunk %s has %d dimensions, index has %d: %w",
				c.ID, len(c.Embedding), s.info.Dimensions, domain.ErrInvalidInput)
		}
	}
	return nil
}

// replaceDocument swaps every chunk of a document for chunks and returns
// the chunks it removed.
func (s *VectorStore) replaceDocument(documentID string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(chunks); err != nil {
		return nil, err
	}
	var previous []domain.Chunk
	for id, c := range s.chunks {
		if c.DocumentID == documentID {
			previous = append(previous, c)
			delete(s.chunks, id)
		}
	}
	for _, c := range chunks {
		s.chunks[c.ID] = cloneChunk(c, true)
	}
	return previous, nil
}

// Query returns up to topK chunks by descending cosine similarity.
func (s *VectorStore) Query(_ context.Context, embedding []float32, topK int) ([]domain.VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]domain.VectorHit, 0, len(s.chunks))
	for _, c := range s.chunks {
		hits = append(hits, domain.VectorHit{
			Chunk: cloneChunk(c, false),
			Score: domain.CosineSimilarity(embedding, c.Embedding),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete removes chunks by ID.
func (s *VectorStore) Delete(_ context.Context, chunkIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range chunkIDs {
		delete(s.chunks, id)
	}
	return nil
}

// ChunkIDs returns the chunk IDs of a document ordered by index.
func (s *VectorStore) ChunkIDs(_ context.Context, documentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []domain.Chunk
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			chunks = append(chunks, c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids, nil
}

// Describe returns the embedding model binding. An unbound store
// returns a zero IndexInfo.
func (s *VectorStore) Describe(_ context.Context) (domain.IndexInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info, nil
}

// Bind records the embedding model of the index. Binding an index that
// holds chunks of another model fails with domain.ErrModelMismatch.
func (s *VectorStore) Bind(_ context.Context, info domain.IndexInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info == info {
		return nil
	}
	if s.info.Model != "" && len(s.chunks) > 0 {
		return fmt.Errorf("%w: index holds %s (%d), requested %s (%d)",
			domain.ErrModelMismatch, s.info.Model, s.info.Dimensions, info.Model, info.Dimensions)
	}
	s.info = info
	return nil
}

// Stats counts chunks and documents, and documents per type.
func (s *VectorStore) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.IndexStats{Chunks: len(s.chunks), ByType: make(map[domain.DocumentType]int)}
	docTypes := make(map[string]domain.DocumentType)
	for _, c := range s.chunks {
		if _, ok := docTypes[c.DocumentID]; !ok {
			docTypes[c.DocumentID] = domain.DocumentType(c.Metadata[domain.SourcingDocumentType])
		}
	}
	stats.Documents = len(docTypes)
	for _, t := range docTypes {
		if t == "" {
			t = domain.DocumentTypeOther
		}
		stats.ByType[t]++
	}
	return stats, nil
}

// Close releases resources (no-op for memory store).
func (s *VectorStore) Close() error {
	return nil
}

func cloneChunk(c domain.Chunk, withEmbedding bool) domain.Chunk {
	c.Metadata = maps.Clone(c.Metadata)
	if withEmbedding {
		c.Embedding = slices.Clone(c.Embedding)
	} else {
		c.Embedding = nil
	}
	return c
}
