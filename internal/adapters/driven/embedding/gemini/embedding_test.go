package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestNewEmbeddingProvider_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingProvider(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestEmbeddingValues(t *testing.T) {
	resp := &genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{
		{Values: []float32{1, 2}},
		{Values: []float32{3, 4}},
	}}
	got, err := embeddingValues(resp, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, got)

	_, err = embeddingValues(resp, 3)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	_, err = embeddingValues(nil, 1)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	_, err = embeddingValues(&genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{nil}}, 1)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
