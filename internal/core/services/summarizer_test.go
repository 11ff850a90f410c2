package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

func normalized(t *testing.T, text string) *domain.NormalizedText {
	t.Helper()
	doc, err := Normalize("doc-1", []string{text})
	require.NoError(t, err)
	return doc
}

// scriptedLLM replies with each response in turn.
func scriptedLLM(responses ...string) (*mockLLM, *[]string) {
	var prompts []string
	llm := &mockLLM{name: "scripted"}
	llm.complete = func(prompt string, _ driven.SchemaHint) (string, error) {
		prompts = append(prompts, prompt)
		i := len(prompts) - 1
		if i >= len(responses) {
			i = len(responses) - 1
		}
		return responses[i], nil
	}
	return llm, &prompts
}

func TestSummarizer_Valid(t *testing.T) {
	llm := newSummaryLLM()
	s := NewSummarizer(llm, testRetry())
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	s.now = func() time.Time { return fixed }

	doc := normalized(t, "M. Jean Durand a signé le contrat.")
	meta := map[string]string{domain.SourcingFileName: "pv.pdf"}

	summary, err := s.Summarize(context.Background(), doc, meta)
	require.NoError(t, err)

	assert.Equal(t, "doc-1", summary.DocumentID)
	assert.Equal(t, doc.ContentHash, summary.ContentHash)
	assert.Equal(t, []string{"M. Jean Durand", "SARL Dupont"}, summary.Parties)
	assert.Equal(t, "M. Jean Durand a signé le contrat. Le virement a eu lieu.", summary.EssentialFacts)
	assert.Empty(t, summary.Inconsistencies)
	assert.Equal(t, meta, summary.Sourcing)
	assert.Equal(t, "mock-llm", summary.Model)
	assert.Equal(t, fixed.UTC(), summary.CreatedAt)
	assert.Equal(t, int32(1), llm.calls.Load())

	// Sourcing is a copy of the caller's metadata.
	meta[domain.SourcingFileName] = "changed.pdf"
	assert.Equal(t, "pv.pdf", summary.Sourcing[domain.SourcingFileName])
}

func TestSummarizer_AcceptsCodeFence(t *testing.T) {
	llm, _ := scriptedLLM("```json\n" + validSummaryJSON + "\n```")
	s := NewSummarizer(llm, testRetry())

	summary, err := s.Summarize(context.Background(), normalized(t, "texte"), nil)
	require.NoError(t, err)
	assert.Len(t, summary.Parties, 2)
}

func TestSummarizer_RetriesOnceWithStrictPrompt(t *testing.T) {
	llm, prompts := scriptedLLM("Voici le résumé : rien", validSummaryJSON)
	s := NewSummarizer(llm, testRetry())

	summary, err := s.Summarize(context.Background(), normalized(t, "texte"), nil)
	require.NoError(t, err)
	assert.Equal(t, "M. Jean Durand", summary.Parties[0])

	require.Len(t, *prompts, 2)
	assert.Contains(t, (*prompts)[1], "Your previous answer was rejected")
}

func TestSummarizer_FormatErrorAfterSecondFailure(t *testing.T) {
	cases := map[string]string{
		"prose":          "je ne sais pas",
		"missing field":  `{"parties":[],"essential_facts":"x","inconsistencies":""}`,
		"unknown field":  `{"parties":[],"essential_facts":"x","inconsistencies":"","sourcing":{},"extra":1}`,
		"wrong type":     `{"parties":"Durand","essential_facts":"x","inconsistencies":"","sourcing":{}}`,
		"trailing data":  validSummaryJSON + " merci",
		"blank party":    `{"parties":[" "],"essential_facts":"x","inconsistencies":"","sourcing":{}}`,
		"empty response": "   ",
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			llm, prompts := scriptedLLM(response)
			s := NewSummarizer(llm, testRetry())

			_, err := s.Summarize(context.Background(), normalized(t, "texte"), nil)
			assert.ErrorIs(t, err, domain.ErrSummaryFormat)
			assert.Len(t, *prompts, 2)
		})
	}
}

func TestSummarizer_ProviderError(t *testing.T) {
	llm := &mockLLM{name: "m", complete: func(string, driven.SchemaHint) (string, error) {
		return "", domain.ErrMissingCredentials
	}}
	s := NewSummarizer(llm, testRetry())

	_, err := s.Summarize(context.Background(), normalized(t, "texte"), nil)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	assert.True(t, domain.IsFatal(err))
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestSummarizer_RetriesTransientProviderError(t *testing.T) {
	calls := 0
	llm := &mockLLM{name: "m", complete: func(string, driven.SchemaHint) (string, error) {
		calls++
		if calls == 1 {
			return "", domain.ErrRateLimited
		}
		return validSummaryJSON, nil
	}}
	s := NewSummarizer(llm, testRetry())

	_, err := s.Summarize(context.Background(), normalized(t, "texte"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSummarizer_UsesPromptStore(t *testing.T) {
	llm, prompts := scriptedLLM(validSummaryJSON)
	s := NewSummarizer(llm, testRetry())
	s.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptSummarize: "META=%s DOC=%s",
	}})

	_, err := s.Summarize(context.Background(), normalized(t, "texte"), map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix((*prompts)[0], "META={"))
	assert.True(t, strings.HasSuffix((*prompts)[0], "DOC=[[page 1]]\n\ntexte"))
}

func TestSummarizer_FallsBackWithoutPrompt(t *testing.T) {
	llm, prompts := scriptedLLM(validSummaryJSON)
	s := NewSummarizer(llm, testRetry())
	s.SetPromptStore(&mockPromptStore{})

	_, err := s.Summarize(context.Background(), normalized(t, "texte"), nil)
	require.NoError(t, err)
	assert.Contains(t, (*prompts)[0], `"essential_facts"`)
}

func TestSummarizer_TruncatesInput(t *testing.T) {
	llm, prompts := scriptedLLM(validSummaryJSON)
	s := NewSummarizer(llm, testRetry())
	s.SetPromptStore(&mockPromptStore{prompts: map[string]string{driven.PromptSummarize: "%s|%s"}})
	s.SetMaxInputChars(40)

	_, err := s.Summarize(context.Background(), normalized(t, strings.Repeat("é", 200)), nil)
	require.NoError(t, err)

	body := (*prompts)[0][strings.Index((*prompts)[0], "|")+1:]
	assert.LessOrEqual(t, len([]rune(body)), 40)
}

func TestParseSummary_Errors(t *testing.T) {
	_, err := parseSummary(`{"parties":[],"essential_facts":"x","inconsistencies":"","sourcing":{}}`)
	require.NoError(t, err)

	_, err = parseSummary(`{"parties":[]}`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrSummaryFormat))
	assert.Contains(t, err.Error(), "essential_facts")
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "court", truncateText("court", 100))
	assert.Equal(t, "abc", truncateText("abcdef", 3))
	assert.Equal(t, "abcdef", truncateText("abcdef", 0))

	text := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30)
	assert.Equal(t, strings.Repeat("a", 30), truncateText(text, 40))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "{}", stripCodeFence("```json\n{}\n```"))
	assert.Equal(t, "{}", stripCodeFence("```\n{}\n```"))
	assert.Equal(t, "{}", stripCodeFence("{}"))
}
