// Package gemini provides an LLM provider adapter for Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/juris/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure LLMProvider implements the interface.
var _ driven.LLMProvider = (*LLMProvider)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

const provider = string(domain.AIProviderGemini)

// Config holds configuration for the Gemini LLM provider.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the model to use (default: gemini-1.5-flash).
	Model string

	// Options are passed to the client, mostly for tests.
	Options []option.ClientOption
}

// LLMProvider completes prompts with the Gemini API.
type LLMProvider struct {
	client *genai.Client
	model  string
}

// NewLLMProvider creates a Gemini client.
func NewLLMProvider(ctx context.Context, cfg Config) (*LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required: %w", domain.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.Options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &LLMProvider{client: client, model: cfg.Model}, nil
}

// Complete generates a single candidate. JSON hints request an
// application/json response.
func (p *LLMProvider) Complete(ctx context.Context, prompt string, hint driven.SchemaHint) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(float32(hint.Temperature))
	if hint.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(hint.MaxTokens)) //nolint:gosec // bounded by config
	}
	if hint.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", httpapi.GRPCError(provider, err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini: no text candidate returned: %w", domain.ErrProviderUnavailable)
	}
	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// ModelName returns the name of the model being used.
func (p *LLMProvider) ModelName() string {
	return p.model
}

// Ping fetches the model metadata.
func (p *LLMProvider) Ping(ctx context.Context) error {
	if _, err := p.client.GenerativeModel(p.model).Info(ctx); err != nil {
		return httpapi.GRPCError(provider, err)
	}
	return nil
}

// Close releases the client connection.
func (p *LLMProvider) Close() error {
	return p.client.Close()
}
