// Package gemini provides an embedding provider adapter for Google Gemini.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/juris/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure EmbeddingProvider implements the interface.
var _ driven.EmbeddingProvider = (*EmbeddingProvider)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

const provider = string(domain.AIProviderGemini)

// Config holds configuration for the Gemini embedding provider.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model (default: text-embedding-004).
	Model string

	// Dimensions is the vector size (default: 768).
	Dimensions int

	// Options are passed to the client, mostly for tests.
	Options []option.ClientOption
}

// EmbeddingProvider embeds texts with the Gemini batch embedding API.
type EmbeddingProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewEmbeddingProvider creates a Gemini embedding client.
func NewEmbeddingProvider(ctx context.Context, cfg Config) (*EmbeddingProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required: %w", domain.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.Options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &EmbeddingProvider{client: client, model: cfg.Model, dimensions: cfg.Dimensions}, nil
}

// EmbedBatch embeds every text in one batch request.
func (p *EmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := p.client.EmbeddingModel(p.model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, httpapi.GRPCError(provider, err)
	}
	return embeddingValues(resp, len(texts))
}

func embeddingValues(resp *genai.BatchEmbedContentsResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini: %d embeddings returned for %d texts: %w",
			got, want, domain.ErrProviderUnavailable)
	}
	out := make([][]float32, want)
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("gemini: embedding %d missing: %w", i, domain.ErrProviderUnavailable)
		}
		out[i] = e.Values
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (p *EmbeddingProvider) Dimensions() int {
	return p.dimensions
}

// ModelName returns the name of the embedding model being used.
func (p *EmbeddingProvider) ModelName() string {
	return p.model
}

// Ping fetches the model metadata.
func (p *EmbeddingProvider) Ping(ctx context.Context) error {
	if _, err := p.client.EmbeddingModel(p.model).Info(ctx); err != nil {
		return httpapi.GRPCError(provider, err)
	}
	return nil
}

// Close releases the client connection.
func (p *EmbeddingProvider) Close() error {
	return p.client.Close()
}
