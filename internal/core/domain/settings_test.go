package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelSpec(t *testing.T) {
	spec, err := ParseModelSpec("openai:gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, AIProviderOpenAI, spec.Provider)
	assert.Equal(t, "gpt-4o", spec.Model)
	assert.Equal(t, "openai:gpt-4o", spec.String())
}

func TestParseModelSpec_DefaultModel(t *testing.T) {
	spec, err := ParseModelSpec("Anthropic")
	require.NoError(t, err)
	assert.Equal(t, AIProviderAnthropic, spec.Provider)
	assert.Equal(t, DefaultLLMModels()[AIProviderAnthropic], spec.Model)
}

func TestParseModelSpec_Unknown(t *testing.T) {
	_, err := ParseModelSpec("watson:x")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestAIProvider_APIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", AIProviderOpenAI.APIKeyEnv())
	assert.Equal(t, "GEMINI_API_KEY", AIProviderGemini.APIKeyEnv())
	assert.Empty(t, AIProviderOllama.APIKeyEnv())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name string
		s    EmbeddingSettings
		want bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"ollama", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	s := LLMSettings{Models: []ModelSpec{{Provider: AIProviderOpenAI, Model: "gpt-4o-mini"}}}
	assert.False(t, s.IsConfigured())

	s.APIKeys = map[AIProvider]string{AIProviderOpenAI: "sk"}
	assert.True(t, s.IsConfigured())

	local := LLMSettings{Models: []ModelSpec{{Provider: AIProviderOllama, Model: "llama3.2"}}}
	assert.True(t, local.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, SourceKindFilesystem, s.Source.Kind)
	assert.Equal(t, OCRProviderAuto, s.OCR.Provider)
	assert.Equal(t, []string{"fr", "en"}, s.OCR.LanguageHints)
	assert.Equal(t, DefaultTopK, s.Retrieval.TopK)
	assert.Equal(t, DefaultMinScore, s.Retrieval.MinScore)
	assert.True(t, s.Ingest.Prune)
	assert.Equal(t, []string{"chunker", "doctype", "entities"}, s.Pipeline.Processors)
	assert.NotNil(t, s.Pipeline.GetProcessorConfig("chunker"))
}
