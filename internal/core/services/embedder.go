package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

// Embedder obtains chunk embeddings from the embedding provider in
// batches bounded by a text count and a byte budget.
type Embedder struct {
	provider      driven.EmbeddingProvider
	retry         RetryPolicy
	maxBatchSize  int
	maxBatchBytes int
}

// NewEmbedder creates an embedder. Non-positive limits use the defaults.
func NewEmbedder(provider driven.EmbeddingProvider, retry RetryPolicy, maxBatchSize, maxBatchBytes int) *Embedder {
	if maxBatchSize <= 0 {
		maxBatchSize = domain.DefaultMaxBatchSize
	}
	if maxBatchBytes <= 0 {
		maxBatchBytes = domain.DefaultMaxBatchBytes
	}
	return &Embedder{
		provider:      provider,
		retry:         retry,
		maxBatchSize:  maxBatchSize,
		maxBatchBytes: maxBatchBytes,
	}
}

// ModelName returns the embedding model name.
func (e *Embedder) ModelName() string {
	return e.provider.ModelName()
}

// IndexInfo returns the binding the vector store must carry.
func (e *Embedder) IndexInfo() domain.IndexInfo {
	return domain.IndexInfo{Model: e.provider.ModelName(), Dimensions: e.provider.Dimensions()}
}

// Embed fills the Embedding of every chunk of one document.
//
// Transient failures are retried with backoff. When a batch fails
// terminally, no chunk receives an embedding and a *domain.EmbeddingError
// is returned: a document is embedded entirely or not at all.
func (e *Embedder) Embed(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	vectors := make([][]float32, len(chunks))

	for _, b := range planBatches(chunks, e.maxBatchSize, e.maxBatchBytes) {
		texts := make([]string, 0, b.end-b.start)
		for i := b.start; i < b.end; i++ {
			texts = append(texts, chunks[i].Content)
		}

		out, attempts, err := e.embedBatch(ctx, texts)
		if err != nil {
			return &domain.EmbeddingError{DocumentID: documentID, Attempts: attempts, Err: err}
		}
		copy(vectors[b.start:b.end], out)
		logger.Debug("embedded batch %s", logger.KV("doc", documentID, "from", b.start, "to", b.end, "attempts", attempts))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

// EmbedText embeds a single text, such as a question.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	out, _, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, int, error) {
	var out [][]float32
	attempts, err := e.retry.Do(ctx, "embed", func(ctx context.Context) error {
		vectors, err := e.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if err := e.validate(vectors, len(texts)); err != nil {
			return err
		}
		out = vectors
		return nil
	})
	return out, attempts, err
}

// validate checks the vector count and dimensionality of a response.
func (e *Embedder) validate(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: provider returned %d vectors for %d texts", domain.ErrInvalidInput, len(vectors), want)
	}
	dims := e.provider.Dimensions()
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at %d", domain.ErrInvalidInput, i)
		}
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", domain.ErrInvalidInput, i, len(v), dims)
		}
	}
	return nil
}

// batchRange is a half-open range of chunk indexes.
type batchRange struct {
	start, end int
}

// planBatches groups consecutive chunks so that no batch exceeds
// maxSize texts or maxBytes bytes. A single text larger than maxBytes
// forms its own batch.
func planBatches(chunks []domain.Chunk, maxSize, maxBytes int) []batchRange {
	var batches []batchRange
	start, size := 0, 0
	for i := range chunks {
		n := len(chunks[i].Content)
		if i > start && (i-start >= maxSize || size+n > maxBytes) {
			batches = append(batches, batchRange{start: start, end: i})
			start, size = i, 0
		}
		size += n
	}
	if start < len(chunks) {
		batches = append(batches, batchRange{start: start, end: len(chunks)})
	}
	return batches
}
