package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

// DefaultMaxSummaryInput bounds the characters of text sent for summarization.
const DefaultMaxSummaryInput = 60000

// Summarizer produces structured summaries through a language model.
// It has no side effect beyond the remote call, so results can be cached
// by normalized content hash.
type Summarizer struct {
	llm           driven.LLMProvider
	promptStore   driven.PromptStore
	retry         RetryPolicy
	maxInputChars int
	now           func() time.Time
}

// Ensure Summarizer accepts custom prompts.
var _ driven.PromptStoreAware = (*Summarizer)(nil)

// NewSummarizer creates a summarizer using llm for every request.
func NewSummarizer(llm driven.LLMProvider, retry RetryPolicy) *Summarizer {
	return &Summarizer{
		llm:           llm,
		retry:         retry,
		maxInputChars: DefaultMaxSummaryInput,
		now:           time.Now,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *Summarizer) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// SetMaxInputChars overrides the input truncation limit.
func (s *Summarizer) SetMaxInputChars(n int) {
	if n > 0 {
		s.maxInputChars = n
	}
}

// Summarize extracts the structured summary of doc.
// Malformed model output is retried once with a stricter instruction;
// a second failure returns domain.ErrSummaryFormat.
func (s *Summarizer) Summarize(
	ctx context.Context,
	doc *domain.NormalizedText,
	metadata map[string]string,
) (*domain.Summary, error) {
	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("summarize %s: marshal metadata: %w", doc.DocumentID, err)
	}
	body := truncateText(doc.Text, s.maxInputChars)

	prompt := fmt.Sprintf(s.loadPrompt(driven.PromptSummarize), metaJSON, body)
	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", doc.DocumentID, err)
	}

	payload, verr := parseSummary(raw)
	if verr != nil {
		logger.Warn("summary for %s rejected, retrying with strict prompt: %v", doc.DocumentID, verr)

		strict := fmt.Sprintf(
			s.loadPrompt(driven.PromptSummarizeStrict),
			verr.Error(), metaJSON, body,
		)
		raw, err = s.complete(ctx, strict)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", doc.DocumentID, err)
		}
		payload, verr = parseSummary(raw)
		if verr != nil {
			return nil, fmt.Errorf("summarize %s: %w: %w", doc.DocumentID, domain.ErrSummaryFormat, verr)
		}
	}

	sourcing := make(map[string]string, len(metadata))
	for k, v := range metadata {
		sourcing[k] = v
	}

	return &domain.Summary{
		DocumentID:      doc.DocumentID,
		ContentHash:     doc.ContentHash,
		Parties:         payload.parties,
		EssentialFacts:  payload.essentialFacts,
		Inconsistencies: payload.inconsistencies,
		Sourcing:        sourcing,
		Model:           s.llm.ModelName(),
		CreatedAt:       s.now().UTC(),
	}, nil
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	var out string
	_, err := s.retry.Do(ctx, "summarize", func(ctx context.Context) error {
		var err error
		out, err = s.llm.Complete(ctx, prompt, driven.SchemaHint{Name: "summary", JSON: true, Temperature: 0.1})
		return err
	})
	return out, err
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (s *Summarizer) loadPrompt(name string) string {
	if s.promptStore == nil {
		return driven.DefaultPrompts[name]
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil || prompt == "" {
		return driven.DefaultPrompts[name]
	}
	return prompt
}

// summaryWire is the schema the model must produce. Pointers distinguish
// missing fields from empty ones.
type summaryWire struct {
	Parties         *[]string       `json:"parties"`
	EssentialFacts  *string         `json:"essential_facts"`
	Inconsistencies *string         `json:"inconsistencies"`
	Sourcing        *map[string]any `json:"sourcing"`
}

type summaryPayload struct {
	parties         []string
	essentialFacts  string
	inconsistencies string
}

// parseSummary validates raw model output against the summary schema.
// A single surrounding markdown code fence is tolerated; anything else
// outside the JSON object is rejected.
func parseSummary(raw string) (*summaryPayload, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return nil, errors.New("empty response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()

	var wire summaryWire
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after summary object")
	}

	switch {
	case wire.Parties == nil:
		return nil, errors.New(`missing field "parties"`)
	case wire.EssentialFacts == nil:
		return nil, errors.New(`missing field "essential_facts"`)
	case wire.Inconsistencies == nil:
		return nil, errors.New(`missing field "inconsistencies"`)
	case wire.Sourcing == nil:
		return nil, errors.New(`missing field "sourcing"`)
	}

	parties := make([]string, 0, len(*wire.Parties))
	for i, p := range *wire.Parties {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("parties[%d] is blank", i)
		}
		parties = append(parties, p)
	}

	return &summaryPayload{
		parties:         parties,
		essentialFacts:  strings.TrimSpace(*wire.EssentialFacts),
		inconsistencies: strings.TrimSpace(*wire.Inconsistencies),
	}, nil
}

// stripCodeFence removes one ```json ... ``` wrapper if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[\"") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

// truncateText bounds text to maxChars runes, preferring to cut at a
// paragraph break in the second half of the allowance.
func truncateText(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}
	cut := string(runes[:maxChars])
	if i := strings.LastIndex(cut, "\n\n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return cut
}
