package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestNewLLMProvider_RequiresKey(t *testing.T) {
	_, err := NewLLMProvider(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"parties":`),
				genai.Blob{MIMEType: "image/png"},
				genai.Text(`[]}`),
			}},
		}},
	}
	assert.Equal(t, `{"parties":[]}`, responseText(resp))
}
