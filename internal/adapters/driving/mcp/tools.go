package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string   `json:"question" jsonschema:"the question about the case file"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default from settings)"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"relevance threshold between -1 and 1 (default from settings)"`
	Models   []string `json:"models,omitempty" jsonschema:"restrict the answer to these provider:model names"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	NoContext bool            `json:"no_context"`
	Sources   []SourceOutput  `json:"sources"`
	Answers   []AnswerOutput  `json:"answers"`
	Passages  []PassageOutput `json:"passages,omitempty"`
}

// SourceOutput is a retrieved document with its best passage score.
type SourceOutput struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// PassageOutput is one retrieved passage.
type PassageOutput struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// AnswerOutput is one model's answer.
type AnswerOutput struct {
	Model     string           `json:"model"`
	Text      string           `json:"text,omitempty"`
	Citations []CitationOutput `json:"citations,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// CitationOutput is a cited document.
type CitationOutput struct {
	DocumentID string `json:"document_id"`
	Valid      bool   `json:"valid"`
}

// EntitiesInput is the input schema for the entities tool.
type EntitiesInput struct {
	Query string `json:"query,omitempty" jsonschema:"filter on the entity name, ignoring case and accents"`
}

// EntitiesOutput is the output schema for the entities tool.
type EntitiesOutput struct {
	Entities []EntityOutput `json:"entities"`
	Count    int            `json:"count"`
}

// EntityOutput is one person or organisation.
type EntityOutput struct {
	Name      string          `json:"name"`
	Variants  []string        `json:"variants"`
	Documents []string        `json:"documents"`
	Mentions  []MentionOutput `json:"mentions"`
}

// MentionOutput is one citing document with context.
type MentionOutput struct {
	DocumentID string `json:"document_id"`
	Excerpt    string `json:"excerpt,omitempty"`
}

// StatusInput is the empty input of the ingest_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the ingest_status tool.
type StatusOutput struct {
	Model       string         `json:"model"`
	Dimensions  int            `json:"dimensions"`
	Documents   int            `json:"documents"`
	Summaries   int            `json:"summaries"`
	Chunks      int            `json:"chunks"`
	ByType      map[string]int `json:"by_type,omitempty"`
	LastSuccess string         `json:"last_success,omitempty"`
	Runs        []RunOutput    `json:"runs,omitempty"`
}

// RunOutput is one recent ingestion run.
type RunOutput struct {
	RunID     string `json:"run_id"`
	Started   string `json:"started"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Removed   int    `json:"removed"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Error     string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Answer a question from the case file. Every configured model answers " +
			"independently and cites documents as [doc:<id>].",
	}, s.handleAsk)

	if s.ports.Entities != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "entities",
			Description: "List the people and organisations cited in the case file and the documents citing them",
		}, s.handleEntities)
	}

	if s.ports.Status != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_status",
			Description: "Report how many documents are indexed and the outcome of recent ingestion runs",
		}, s.handleStatus)
	}
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := domain.QueryOptions{TopK: input.TopK, MinScore: input.MinScore, Models: input.Models}
	result, err := s.ports.Query.Answer(ctx, input.Question, opts)
	if result == nil {
		return nil, AskOutput{}, err
	}
	// Per-model failures are reported in the answers.
	if err != nil && len(result.Answers) == 0 {
		return nil, AskOutput{}, err
	}
	return nil, askOutput(result), nil
}

func askOutput(result *domain.QueryResult) AskOutput {
	out := AskOutput{
		NoContext: result.NoContext,
		Sources:   []SourceOutput{},
		Answers:   make([]AnswerOutput, 0, len(result.Answers)),
	}

	best := make(map[string]float64)
	for _, sc := range result.Chunks {
		if sc.Score > best[sc.Chunk.DocumentID] {
			best[sc.Chunk.DocumentID] = sc.Score
		}
		out.Passages = append(out.Passages, PassageOutput{
			DocumentID: sc.Chunk.DocumentID,
			Score:      sc.Score,
			Content:    sc.Chunk.Content,
		})
	}
	for _, id := range result.DocumentIDs() {
		out.Sources = append(out.Sources, SourceOutput{DocumentID: id, Score: best[id]})
	}

	for _, a := range result.Answers {
		answer := AnswerOutput{Model: a.Model, Text: a.Text}
		if a.Err != nil {
			answer.Error = a.Err.Error()
		}
		for _, c := range a.Citations {
			answer.Citations = append(answer.Citations, CitationOutput{DocumentID: c.DocumentID, Valid: c.Valid})
		}
		out.Answers = append(out.Answers, answer)
	}
	return out
}

func (s *Server) handleEntities(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input EntitiesInput,
) (*mcp.CallToolResult, EntitiesOutput, error) {
	var entities []*domain.Entity
	if input.Query != "" {
		found, err := s.ports.Entities.Search(ctx, input.Query)
		if err != nil {
			return nil, EntitiesOutput{}, fmt.Errorf("searching entities: %w", err)
		}
		entities = found
	} else {
		m, err := s.ports.Entities.Build(ctx)
		if err != nil {
			return nil, EntitiesOutput{}, fmt.Errorf("building entity map: %w", err)
		}
		for _, key := range m.Keys() {
			entities = append(entities, m.Entities[key])
		}
	}

	out := EntitiesOutput{Entities: make([]EntityOutput, len(entities)), Count: len(entities)}
	for i, e := range entities {
		mentions := make([]MentionOutput, len(e.Mentions))
		for j, m := range e.Mentions {
			mentions[j] = MentionOutput{DocumentID: m.DocumentID, Excerpt: m.Excerpt}
		}
		out.Entities[i] = EntityOutput{
			Name:      e.Name,
			Variants:  e.Variants,
			Documents: e.Documents(),
			Mentions:  mentions,
		}
	}
	return nil, out, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("reading status: %w", err)
	}

	out := StatusOutput{
		Model:      status.Model,
		Dimensions: status.Dimensions,
		Documents:  status.Documents,
		Summaries:  status.Summaries,
		Chunks:     status.Index.Chunks,
	}
	if len(status.Index.ByType) > 0 {
		out.ByType = make(map[string]int, len(status.Index.ByType))
		for t, n := range status.Index.ByType {
			out.ByType[string(t)] = n
		}
	}
	if !status.LastSuccess.IsZero() {
		out.LastSuccess = status.LastSuccess.UTC().Format(time.RFC3339)
	}
	for _, r := range status.Runs {
		out.Runs = append(out.Runs, RunOutput{
			RunID:     r.RunID,
			Started:   r.Started.UTC().Format(time.RFC3339),
			Succeeded: r.Succeeded,
			Skipped:   r.Skipped,
			Failed:    r.Failed,
			Removed:   r.Removed,
			Cancelled: r.Cancelled,
			Error:     r.Error,
		})
	}
	return nil, out, nil
}

// isNotFound reports whether err means the requested item does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
