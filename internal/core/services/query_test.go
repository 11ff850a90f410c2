package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

type queryFixture struct {
	embedding *keywordEmbedding
	vectors   *memory.VectorStore
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	f := &queryFixture{embedding: newKeywordEmbedding(), vectors: memory.NewVectorStore()}

	chunks := []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Content: "M. Durand a signé le contrat.",
			Metadata: map[string]string{domain.SourcingFileName: "pv_audition.pdf", domain.SourcingDocumentType: "audition"}},
		{ID: "c2", DocumentID: "doc-2", Content: "Le virement de 1 000 euros a été reçu."},
		{ID: "c3", DocumentID: "doc-3", Content: "Rapport d'expertise comptable."},
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := f.embedding.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	ctx := context.Background()
	require.NoError(t, f.vectors.Bind(ctx, domain.IndexInfo{Model: "mock-embed", Dimensions: f.embedding.Dimensions()}))
	require.NoError(t, f.vectors.Upsert(ctx, chunks))
	return f
}

func (f *queryFixture) engine(models ...AnswerModel) *QueryEngine {
	return NewQueryEngine(
		NewEmbedder(f.embedding, testRetry(), 0, 0),
		f.vectors,
		models,
		testRetry(),
		domain.DefaultAppSettings().Retrieval,
	)
}

func answering(name, text string) AnswerModel {
	return AnswerModel{Name: name, LLM: &mockLLM{
		name:     name,
		complete: func(string, driven.SchemaHint) (string, error) { return text, nil },
	}}
}

func failing(name string, err error) AnswerModel {
	return AnswerModel{Name: name, LLM: &mockLLM{
		name:     name,
		complete: func(string, driven.SchemaHint) (string, error) { return "", err },
	}}
}

func TestAnswer_RetrievesAboveThreshold(t *testing.T) {
	f := newQueryFixture(t)

	var mu sync.Mutex
	var prompt string
	model := AnswerModel{Name: "openai:gpt-4o-mini", LLM: &mockLLM{
		name: "gpt-4o-mini",
		complete: func(p string, _ driven.SchemaHint) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			prompt = p
			return "Le virement est établi [doc:doc-2].", nil
		},
	}}

	result, err := f.engine(model).Answer(context.Background(), "Qu'a déclaré Durand sur le virement ?", domain.QueryOptions{})
	require.NoError(t, err)

	assert.False(t, result.NoContext)
	assert.Equal(t, []string{"doc-2", "doc-1"}, result.DocumentIDs())
	for _, sc := range result.Chunks {
		assert.GreaterOrEqual(t, sc.Score, domain.DefaultMinScore)
	}

	assert.Contains(t, prompt, "[doc:doc-1] pv_audition.pdf (audition)")
	assert.Contains(t, prompt, "[doc:doc-2]")
	assert.NotContains(t, prompt, "doc-3")
	assert.Contains(t, prompt, "Qu'a déclaré Durand sur le virement ?")

	require.Len(t, result.Answers, 1)
	assert.Equal(t, "openai:gpt-4o-mini", result.Answers[0].Model)
	assert.Equal(t, []domain.Citation{{DocumentID: "doc-2", Valid: true}}, result.Answers[0].Citations)
}

func TestAnswer_NoContextBelowThreshold(t *testing.T) {
	f := newQueryFixture(t)
	model := &mockLLM{name: "m", complete: func(string, driven.SchemaHint) (string, error) { return "x", nil }}

	result, err := f.engine(AnswerModel{Name: "m", LLM: model}).
		Answer(context.Background(), "Quelle est la météo ?", domain.QueryOptions{})
	require.NoError(t, err)

	assert.True(t, result.NoContext)
	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.Answers)
	assert.Equal(t, int32(0), model.calls.Load())
}

func TestAnswer_EmptyIndex(t *testing.T) {
	engine := NewQueryEngine(
		NewEmbedder(newKeywordEmbedding(), testRetry(), 0, 0),
		memory.NewVectorStore(),
		[]AnswerModel{answering("m", "x")},
		testRetry(),
		domain.DefaultAppSettings().Retrieval,
	)

	result, err := engine.Answer(context.Background(), "Durand ?", domain.QueryOptions{})
	require.NoError(t, err)
	assert.True(t, result.NoContext)
}

func TestAnswer_ModelMismatch(t *testing.T) {
	f := newQueryFixture(t)
	f.embedding.model = "another-model"

	_, err := f.engine(answering("m", "x")).Answer(context.Background(), "Durand ?", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrModelMismatch)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	f := newQueryFixture(t)
	_, err := f.engine().Answer(context.Background(), "   ", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswer_FlagsInvalidCitations(t *testing.T) {
	f := newQueryFixture(t)
	text := "Durand a signé [doc:doc-1]. Voir aussi [doc:ghost] et encore [doc:doc-1]."

	result, err := f.engine(answering("m", text)).Answer(context.Background(), "Durand et le contrat ?", domain.QueryOptions{})
	require.NoError(t, err)

	answer := result.Answers[0]
	assert.Equal(t, text, answer.Text)
	assert.Equal(t, []domain.Citation{
		{DocumentID: "doc-1", Valid: true},
		{DocumentID: "ghost", Valid: false},
	}, answer.Citations)
	assert.Equal(t, []domain.Citation{{DocumentID: "ghost", Valid: false}}, answer.InvalidCitations())
}

func TestAnswer_FanOutKeepsOrderAndIsolatesFailures(t *testing.T) {
	f := newQueryFixture(t)
	engine := f.engine(
		answering("openai:gpt-4o-mini", "Oui [doc:doc-1]."),
		failing("anthropic:claude", fmt.Errorf("bad request: %w", domain.ErrInvalidInput)),
		answering("mistral:mistral-large-latest", "Oui [doc:doc-1]."),
	)

	result, err := engine.Answer(context.Background(), "Durand a-t-il signé le contrat ?", domain.QueryOptions{})
	require.NoError(t, err)

	require.Len(t, result.Answers, 3)
	assert.Equal(t, "openai:gpt-4o-mini", result.Answers[0].Model)
	assert.Equal(t, "anthropic:claude", result.Answers[1].Model)
	assert.Equal(t, "mistral:mistral-large-latest", result.Answers[2].Model)

	assert.NoError(t, result.Answers[0].Err)
	assert.ErrorIs(t, result.Answers[1].Err, domain.ErrInvalidInput)
	assert.Empty(t, result.Answers[1].Text)
	assert.NoError(t, result.Answers[2].Err)
}

func TestAnswer_AllModelsFail(t *testing.T) {
	f := newQueryFixture(t)
	engine := f.engine(
		failing("a", domain.ErrInvalidInput),
		failing("b", domain.ErrMissingCredentials),
	)

	result, err := engine.Answer(context.Background(), "Durand ?", domain.QueryOptions{})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	assert.Len(t, result.Answers, 2)
}

func TestAnswer_SelectsModels(t *testing.T) {
	f := newQueryFixture(t)
	engine := f.engine(answering("a", "A"), answering("b", "B"))
	assert.Equal(t, []string{"a", "b"}, engine.Models())

	result, err := engine.Answer(context.Background(), "Durand ?", domain.QueryOptions{Models: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, result.Answers, 1)
	assert.Equal(t, "b", result.Answers[0].Model)

	_, err = engine.Answer(context.Background(), "Durand ?", domain.QueryOptions{Models: []string{"unknown"}})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestAnswer_UsesPromptStore(t *testing.T) {
	f := newQueryFixture(t)
	var got string
	model := AnswerModel{Name: "m", LLM: &mockLLM{name: "m", complete: func(p string, _ driven.SchemaHint) (string, error) {
		got = p
		return "ok", nil
	}}}
	engine := f.engine(model)
	engine.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptAnswer: "CTX<%s> Q<%s>",
	}})

	_, err := engine.Answer(context.Background(), "Durand ?", domain.QueryOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "CTX<[doc:doc-1]"))
	assert.True(t, strings.HasSuffix(got, "Q<Durand ?>"))
}

func TestAnswer_TopKIsCapped(t *testing.T) {
	f := newQueryFixture(t)
	engine := f.engine(answering("m", "ok"))

	topK, minScore, err := engine.limits(domain.QueryOptions{TopK: 500})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTopK, topK)
	assert.Equal(t, domain.DefaultMinScore, minScore)

	high := 0.9
	topK, minScore, err = engine.limits(domain.QueryOptions{TopK: 2, MinScore: &high})
	require.NoError(t, err)
	assert.Equal(t, 2, topK)
	assert.Equal(t, 0.9, minScore)
}

func TestAnswer_MinScore(t *testing.T) {
	f := newQueryFixture(t)
	engine := f.engine(answering("m", "ok"))

	zero := 0.0
	_, minScore, err := engine.limits(domain.QueryOptions{MinScore: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0.0, minScore)

	negative := -0.5
	_, minScore, err = engine.limits(domain.QueryOptions{MinScore: &negative})
	require.NoError(t, err)
	assert.Equal(t, -0.5, minScore)

	tooHigh := 1.5
	_, err = engine.Answer(context.Background(), "Durand ?", domain.QueryOptions{MinScore: &tooHigh})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cfg := domain.DefaultAppSettings().Retrieval
	cfg.MinScore = 0
	configured := NewQueryEngine(engine.embedder, f.vectors, nil, testRetry(), cfg)
	_, minScore, err = configured.limits(domain.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, minScore)
}

func TestBuildContext(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{DocumentID: "a", Content: "a-low"}, Score: 0.4},
		{Chunk: domain.Chunk{DocumentID: "b", Content: "b-high"}, Score: 0.9},
		{Chunk: domain.Chunk{DocumentID: "a", Content: "a-high"}, Score: 0.8},
		{Chunk: domain.Chunk{DocumentID: "b", Content: "b-high"}, Score: 0.5},
	}

	got := BuildContext(chunks, 0)
	assert.Equal(t, "[doc:b]\nb-high\n\n[doc:a]\na-high\na-low", got)
}

func TestBuildContext_Bounded(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{DocumentID: "a", Content: strings.Repeat("x", 50)}, Score: 0.9},
		{Chunk: domain.Chunk{DocumentID: "b", Content: strings.Repeat("y", 50)}, Score: 0.8},
	}

	got := BuildContext(chunks, 70)
	assert.LessOrEqual(t, len(got), 70)
	assert.Contains(t, got, "[doc:a]")
	assert.NotContains(t, got, "[doc:b]")

	// The first chunk is kept even when it alone exceeds the bound
	got = BuildContext(chunks, 20)
	assert.Len(t, got, 20)
	assert.True(t, strings.HasPrefix(got, "[doc:a]"))
}

func TestParseCitations(t *testing.T) {
	retrieved := map[string]struct{}{"doc-1": {}}

	got := ParseCitations("A [doc:doc-1], B [doc: doc-2 ] C [doc:doc-1]", retrieved)
	assert.Equal(t, []domain.Citation{
		{DocumentID: "doc-1", Valid: true},
		{DocumentID: "doc-2", Valid: false},
	}, got)

	assert.Empty(t, ParseCitations("no citations here", retrieved))
}

func TestParseCitations_IDsWithSpaces(t *testing.T) {
	retrieved := map[string]struct{}{"dossier/PV audition Durand.pdf": {}}

	got := ParseCitations("Durand nie [doc:dossier/PV audition Durand.pdf]. Voir aussi [doc: rapport inventé.pdf ].", retrieved)
	assert.Equal(t, []domain.Citation{
		{DocumentID: "dossier/PV audition Durand.pdf", Valid: true},
		{DocumentID: "rapport inventé.pdf", Valid: false},
	}, got)
}
