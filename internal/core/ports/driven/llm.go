// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMProvider completes prompts with a remote or local language model.
//
// Implementations include:
//   - OpenAI (and OpenAI-compatible APIs such as Mistral)
//   - Anthropic (Claude)
//   - Ollama (local models)
//   - Gemini
type LLMProvider interface {
	// Complete sends one prompt and returns the model's text.
	// When hint.JSON is set, providers with a native JSON mode enable it.
	// Failures follow the same taxonomy as EmbeddingProvider.
	Complete(ctx context.Context, prompt string, hint SchemaHint) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// SchemaHint describes the expected shape of a completion.
type SchemaHint struct {
	// Name identifies the schema for logging ("summary", "answer").
	Name string

	// JSON requests a JSON object response.
	JSON bool

	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
