package domain

import (
	"fmt"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderMistral is Mistral cloud API (OpenAI-compatible).
	AIProviderMistral AIProvider = "mistral"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderMistral:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderMistral:
		return "Mistral (cloud)"
	default:
		return unknownDescription
	}
}

// APIKeyEnv returns the environment variable holding the provider's API key.
func (p AIProvider) APIKeyEnv() string {
	if p == AIProviderOllama {
		return ""
	}
	return strings.ToUpper(string(p)) + "_API_KEY"
}

// SourceKind identifies a document source connector.
type SourceKind string

// Available source kinds.
const (
	SourceKindFilesystem SourceKind = "filesystem"
	SourceKindGDrive     SourceKind = "gdrive"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceKindFilesystem || k == SourceKindGDrive
}

// OCRProvider identifies an OCR adapter.
type OCRProvider string

// Available OCR adapters.
const (
	// OCRProviderAuto picks an adapter per document from its type.
	OCRProviderAuto OCRProvider = "auto"

	// OCRProviderPDFText reads the embedded PDF text layer.
	OCRProviderPDFText OCRProvider = "pdftext"

	// OCRProviderVision uses Google Cloud Vision document text detection.
	OCRProviderVision OCRProvider = "vision"

	// OCRProviderHTTP posts documents to an OCR HTTP service.
	OCRProviderHTTP OCRProvider = "http"

	// OCRProviderPlaintext treats the payload as UTF-8 text.
	OCRProviderPlaintext OCRProvider = "plaintext"
)

// IsValid returns true if the OCR provider is recognised.
func (p OCRProvider) IsValid() bool {
	switch p {
	case OCRProviderAuto, OCRProviderPDFText, OCRProviderVision, OCRProviderHTTP, OCRProviderPlaintext:
		return true
	default:
		return false
	}
}

// ModelSpec identifies one chat model as "provider:model".
type ModelSpec struct {
	Provider AIProvider
	Model    string
}

// ParseModelSpec parses "provider:model". The model part may be empty,
// in which case the provider default is used.
func ParseModelSpec(s string) (ModelSpec, error) {
	provider, model, _ := strings.Cut(strings.TrimSpace(s), ":")
	spec := ModelSpec{Provider: AIProvider(strings.ToLower(provider)), Model: model}
	if !spec.Provider.IsValid() {
		return ModelSpec{}, fmt.Errorf("parse model %q: %w", s, ErrUnsupportedType)
	}
	if spec.Model == "" {
		spec.Model = DefaultLLMModels()[spec.Provider]
	}
	return spec, nil
}

// String returns "provider:model".
func (m ModelSpec) String() string {
	return string(m.Provider) + ":" + m.Model
}

// SourceSettings holds document source configuration.
type SourceSettings struct {
	// Kind selects the connector.
	Kind SourceKind

	// Path is the root directory for the filesystem connector.
	Path string

	// Extensions restricts the filesystem connector to these file extensions.
	Extensions []string

	// FolderIDs restricts the Drive connector to these folders.
	FolderIDs []string

	// CredentialsFile is a Google service account or authorized-user JSON file.
	CredentialsFile string

	// ClientID, ClientSecret and RefreshToken configure Drive OAuth access.
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// OCRSettings holds OCR adapter configuration.
type OCRSettings struct {
	// Provider selects the adapter.
	Provider OCRProvider

	// HTTPURL is the base URL of the OCR HTTP service.
	HTTPURL string

	// CredentialsFile is the Google credentials file for Vision.
	CredentialsFile string

	// LanguageHints are passed to OCR engines that support them.
	LanguageHints []string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and compatible APIs).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions overrides the model's default vector size when supported.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds the configured chat models and their credentials.
type LLMSettings struct {
	// Models lists the models queried for summaries and answers.
	// The first model produces summaries.
	Models []ModelSpec

	// APIKeys maps providers to API keys.
	APIKeys map[AIProvider]string

	// BaseURLs maps providers to custom endpoints.
	BaseURLs map[AIProvider]string
}

// IsConfigured returns true if at least one model is usable.
func (l LLMSettings) IsConfigured() bool {
	for _, m := range l.Models {
		if !m.Provider.RequiresAPIKey() || l.APIKeys[m.Provider] != "" {
			return true
		}
	}
	return false
}

// IngestSettings tunes the ingestion orchestrator.
type IngestSettings struct {
	// Workers bounds concurrent documents.
	Workers int

	// CallTimeout bounds every external call.
	CallTimeout time.Duration

	// MaxBatchSize bounds texts per embedding request.
	MaxBatchSize int

	// MaxBatchBytes bounds bytes per embedding request.
	MaxBatchBytes int

	// MaxAttempts bounds retries of transient failures.
	MaxAttempts int

	// Prune removes documents that disappeared from the source.
	Prune bool

	// RequestsPerSecond limits calls to each AI provider. Zero disables limiting.
	RequestsPerSecond float64
}

// RetrievalSettings tunes the query engine.
type RetrievalSettings struct {
	// TopK is the default number of retrieved chunks.
	TopK int

	// MinScore is the relevance threshold.
	MinScore float64

	// MaxContextChars bounds the assembled context.
	MaxContextChars int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Source    SourceSettings
	OCR       OCRSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Ingest    IngestSettings
	Retrieval RetrievalSettings
	Pipeline  PipelineConfig
}

// Default retrieval and ingestion values.
const (
	DefaultTopK            = 8
	MaxTopK                = 50
	DefaultMinScore        = 0.3
	DefaultMaxContextChars = 8000
	DefaultWorkers         = 4
	DefaultCallTimeout     = 2 * time.Minute
	DefaultMaxBatchSize    = 64
	DefaultMaxBatchBytes   = 256 * 1024
	DefaultMaxAttempts     = 5
)

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; they need credentials.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Source: SourceSettings{
			Kind:       SourceKindFilesystem,
			Extensions: []string{".pdf", ".txt", ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".docx", ".xlsx", ".eml", ".html", ".md"},
		},
		OCR: OCRSettings{
			Provider:      OCRProviderAuto,
			LanguageHints: []string{"fr", "en"},
		},
		Embedding: EmbeddingSettings{},
		LLM: LLMSettings{
			APIKeys:  map[AIProvider]string{},
			BaseURLs: map[AIProvider]string{},
		},
		Ingest: IngestSettings{
			Workers:       DefaultWorkers,
			CallTimeout:   DefaultCallTimeout,
			MaxBatchSize:  DefaultMaxBatchSize,
			MaxBatchBytes: DefaultMaxBatchBytes,
			MaxAttempts:   DefaultMaxAttempts,
			Prune:         true,
		},
		Retrieval: RetrievalSettings{
			TopK:            DefaultTopK,
			MinScore:        DefaultMinScore,
			MaxContextChars: DefaultMaxContextChars,
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderGemini:  "text-embedding-004",
		AIProviderMistral: "mistral-embed",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
		AIProviderMistral:   "mistral-large-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
		"embedding-001":      768,
		// Mistral models
		"mistral-embed": 1024,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "doctype", "entities"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 1000,
				"overlap":    200,
				"tolerance":  200,
			},
		},
	}
}
