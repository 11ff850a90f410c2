package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		if len(req.Input) == 1 {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	p := NewEmbeddingProvider(Config{BaseURL: server.URL, Model: "all-minilm"})
	assert.Equal(t, 384, p.Dimensions())

	vectors, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vectors)

	_, err = p.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestNewEmbeddingProvider_Defaults(t *testing.T) {
	p := NewEmbeddingProvider(Config{})
	assert.Equal(t, DefaultModel, p.ModelName())
	assert.Equal(t, DefaultDimensions, p.Dimensions())
	assert.NoError(t, p.Close())
}
