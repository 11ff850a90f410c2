package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

func TestNewLLMProvider_RequiresKey(t *testing.T) {
	_, err := NewLLMProvider(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)

	_, err = NewLLMProvider(LLMConfig{Provider: "mistral"})
	assert.ErrorContains(t, err, "mistral")
}

func TestComplete(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p, err := NewLLMProvider(LLMConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1/"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, p.ModelName())

	text, err := p.Complete(context.Background(), "résume", driven.SchemaHint{JSON: true, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	assert.Equal(t, DefaultLLMModel, got.Model)
	assert.Equal(t, []chatCompletionMsg{{Role: "user", Content: "résume"}}, got.Messages)
	assert.Equal(t, 500, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"rate"}}`, domain.ErrRateLimited},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"key"}}`, domain.ErrMissingCredentials},
		{"no choices", http.StatusOK, `{"choices":[]}`, domain.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, err := NewLLMProvider(LLMConfig{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)
			_, err = p.Complete(context.Background(), "x", driven.SchemaHint{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	p, err := NewLLMProvider(LLMConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, p.Ping(context.Background()))
	assert.NoError(t, p.Close())
}
