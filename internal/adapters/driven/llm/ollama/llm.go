// Package ollama provides an LLM provider adapter using a local Ollama
// server.
package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/juris/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure LLMProvider implements the interface.
var _ driven.LLMProvider = (*LLMProvider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 300 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM provider.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 300s, local models are slow).
	Timeout time.Duration
}

// LLMProvider completes prompts with Ollama's generate endpoint.
type LLMProvider struct {
	api     *httpapi.Client
	baseURL string
	model   string
}

// generateRequest is the /api/generate request format.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewLLMProvider creates a new Ollama LLM provider.
func NewLLMProvider(cfg LLMConfig) *LLMProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMProvider{
		api: &httpapi.Client{
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Provider: string(domain.AIProviderOllama),
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Complete runs a non-streaming generation. JSON hints select Ollama's
// JSON output format.
func (p *LLMProvider) Complete(ctx context.Context, prompt string, hint driven.SchemaHint) (string, error) {
	reqBody := generateRequest{
		Model:   p.model,
		Prompt:  prompt,
		Options: map[string]any{"temperature": hint.Temperature},
	}
	if hint.MaxTokens > 0 {
		reqBody.Options["num_predict"] = hint.MaxTokens
	}
	if hint.JSON {
		reqBody.Format = "json"
	}

	var resp generateResponse
	if err := p.api.PostJSON(ctx, p.baseURL+"/api/generate", reqBody, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// ModelName returns the name of the LLM model being used.
func (p *LLMProvider) ModelName() string {
	return p.model
}

// Ping checks the /api/tags endpoint without running inference.
func (p *LLMProvider) Ping(ctx context.Context) error {
	return p.api.Get(ctx, p.baseURL+"/api/tags")
}

// Close releases resources.
func (p *LLMProvider) Close() error {
	return nil
}
