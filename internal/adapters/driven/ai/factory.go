// Package ai builds the embedding and language model providers from
// settings and wraps them with rate limiting and circuit breakers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/juris/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/juris/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/juris/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/juris/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/juris/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/juris/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/juris/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

// Model is one configured chat model.
type Model struct {
	Spec domain.ModelSpec
	LLM  driven.LLMProvider
}

// InitResult contains the providers built from settings.
type InitResult struct {
	Embedding driven.EmbeddingProvider
	Models    []Model
	Warnings  []string // Models skipped because they could not be built.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedding != nil {
		_ = r.Embedding.Close()
	}
	for _, m := range r.Models {
		_ = m.LLM.Close()
	}
}

// Init builds the embedding provider and every chat model.
// A model that cannot be built is skipped with a warning; no usable
// model at all is an error.
func Init(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	rps := settings.Ingest.RequestsPerSecond
	result := &InitResult{}

	embedding, err := NewEmbeddingProvider(ctx, settings.Embedding, settings.Ingest.CallTimeout)
	if err != nil {
		return nil, err
	}
	result.Embedding = GuardEmbedding("embedding:"+string(settings.Embedding.Provider), embedding, rps)

	for _, spec := range settings.LLM.Models {
		llm, err := NewLLMProvider(ctx, spec, settings.LLM, settings.Ingest.CallTimeout)
		if err != nil {
			warning := fmt.Sprintf("skipping model %s: %v", spec, err)
			logger.Warn("%s", warning)
			result.Warnings = append(result.Warnings, warning)
			continue
		}
		result.Models = append(result.Models, Model{Spec: spec, LLM: GuardLLM(spec.String(), llm, rps)})
	}

	if len(result.Models) == 0 {
		result.Close()
		return nil, fmt.Errorf("no usable language model (set llm.models and API keys): %w", domain.ErrNotConfigured)
	}
	return result, nil
}

// NewEmbeddingProvider creates the embedding provider selected in settings.
func NewEmbeddingProvider(
	ctx context.Context,
	settings domain.EmbeddingSettings,
	timeout time.Duration,
) (driven.EmbeddingProvider, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("embedding provider not set: %w", domain.ErrNotConfigured)
	}
	model := settings.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[settings.Provider]
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingProvider(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      model,
			Timeout:    timeout,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingProvider(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      model,
			Timeout:    timeout,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderMistral:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaillm.MistralBaseURL
		}
		return openaiembed.NewEmbeddingProvider(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    baseURL,
			Model:      model,
			Timeout:    timeout,
			Dimensions: settings.Dimensions,
			Provider:   string(domain.AIProviderMistral),
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingProvider(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			Model:      model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama, openai, gemini or mistral: %w",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("embedding provider %s: %w", settings.Provider, domain.ErrUnsupportedType)
	}
}

// NewLLMProvider creates the provider serving one chat model.
func NewLLMProvider(
	ctx context.Context,
	spec domain.ModelSpec,
	settings domain.LLMSettings,
	timeout time.Duration,
) (driven.LLMProvider, error) {
	apiKey := settings.APIKeys[spec.Provider]
	baseURL := settings.BaseURLs[spec.Provider]

	switch spec.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMProvider(ollamallm.LLMConfig{
			BaseURL: baseURL,
			Model:   spec.Model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMProvider(openaillm.LLMConfig{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Model:   spec.Model,
			Timeout: timeout,
		})

	case domain.AIProviderMistral:
		if baseURL == "" {
			baseURL = openaillm.MistralBaseURL
		}
		return openaillm.NewLLMProvider(openaillm.LLMConfig{
			APIKey:   apiKey,
			BaseURL:  baseURL,
			Model:    spec.Model,
			Timeout:  timeout,
			Provider: string(domain.AIProviderMistral),
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMProvider(anthropicllm.Config{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Model:   spec.Model,
			Timeout: timeout,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMProvider(ctx, geminillm.Config{
			APIKey: apiKey,
			Model:  spec.Model,
		})

	default:
		return nil, fmt.Errorf("llm provider %s: %w", spec.Provider, domain.ErrUnsupportedType)
	}
}

// pingTimeout is the maximum time to wait for one connectivity check.
const pingTimeout = 10 * time.Second

// CheckResult is the outcome of pinging one provider.
type CheckResult struct {
	Name string
	Err  error
}

// Check pings the embedding provider and every model.
func (r *InitResult) Check(ctx context.Context) []CheckResult {
	results := make([]CheckResult, 0, len(r.Models)+1)
	ping := func(name string, fn func(context.Context) error) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		results = append(results, CheckResult{Name: name, Err: fn(pctx)})
	}

	if r.Embedding != nil {
		ping("embedding "+r.Embedding.ModelName(), r.Embedding.Ping)
	}
	for _, m := range r.Models {
		ping("llm "+m.Spec.String(), m.LLM.Ping)
	}
	return results
}

// CheckError joins the failures of a check.
func CheckError(results []CheckResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}
