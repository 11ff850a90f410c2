package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// citationPattern matches [doc:<id>] citations.
var citationPattern = regexp.MustCompile(`\[doc:\s*([^\]]+?)\s*\]`)

// Ensure QueryEngine implements the interfaces.
var (
	_ driving.QueryEngine     = (*QueryEngine)(nil)
	_ driven.PromptStoreAware = (*QueryEngine)(nil)
)

// AnswerModel is one language model of the answer fan-out.
type AnswerModel struct {
	// Name identifies the model in results ("openai:gpt-4o-mini").
	Name string

	// LLM is the provider serving the model.
	LLM driven.LLMProvider
}

// QueryEngine answers questions from the indexed chunks.
type QueryEngine struct {
	embedder    *Embedder
	vectors     driven.VectorStore
	models      []AnswerModel
	promptStore driven.PromptStore
	retry       RetryPolicy
	cfg         domain.RetrievalSettings
}

// NewQueryEngine creates a query engine. A zero TopK or MaxContextChars
// uses the default; a MinScore outside [-1, 1] uses DefaultMinScore.
func NewQueryEngine(
	embedder *Embedder,
	vectors driven.VectorStore,
	models []AnswerModel,
	retry RetryPolicy,
	cfg domain.RetrievalSettings,
) *QueryEngine {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.MinScore < -1 || cfg.MinScore > 1 {
		cfg.MinScore = domain.DefaultMinScore
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = domain.DefaultMaxContextChars
	}
	return &QueryEngine{
		embedder: embedder,
		vectors:  vectors,
		models:   models,
		retry:    retry,
		cfg:      cfg,
	}
}

// SetPromptStore sets the prompt store for loading the answer prompt.
func (q *QueryEngine) SetPromptStore(store driven.PromptStore) {
	q.promptStore = store
}

// Models returns the configured model names in order.
func (q *QueryEngine) Models() []string {
	names := make([]string, len(q.models))
	for i, m := range q.models {
		names[i] = m.Name
	}
	return names
}

// Answer retrieves the chunks relevant to question and asks every
// configured model for a cited answer.
//
// When no chunk passes the relevance threshold the result has NoContext
// set, no model is called and the error is nil. Models fail independently;
// an error is returned alongside the result only when all of them fail.
func (q *QueryEngine) Answer(ctx context.Context, question string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("answer: %w: empty question", domain.ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "query.answer")
	defer span.End()

	result, err := q.answer(ctx, question, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if result != nil {
		span.SetAttributes(
			attribute.Int("query.chunks", len(result.Chunks)),
			attribute.Int("query.models", len(result.Answers)),
			attribute.Bool("query.no_context", result.NoContext),
		)
	}
	return result, err
}

func (q *QueryEngine) answer(ctx context.Context, question string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	result := &domain.QueryResult{Question: question}

	// 1. Check the index was built with the current embedding model
	info, err := q.vectors.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe index: %w", err)
	}
	if info.Model == "" {
		logger.Info("index is empty")
		result.NoContext = true
		return result, nil
	}
	if info.Model != q.embedder.ModelName() {
		return nil, fmt.Errorf("%w: index built with %q, embedding with %q",
			domain.ErrModelMismatch, info.Model, q.embedder.ModelName())
	}

	// 2. Embed the question
	vector, err := q.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	// 3. Retrieve and filter by relevance
	topK, minScore, err := q.limits(opts)
	if err != nil {
		return nil, err
	}
	hits, err := q.vectors.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	for _, h := range hits {
		if h.Score >= minScore {
			result.Chunks = append(result.Chunks, domain.ScoredChunk{Chunk: h.Chunk, Score: h.Score})
		}
	}
	logger.Debug("retrieved %s", logger.KV("hits", len(hits), "kept", len(result.Chunks), "min_score", minScore))

	if len(result.Chunks) == 0 {
		result.NoContext = true
		return result, nil
	}

	// 4. Assemble the context and fan out to the models
	contextText := BuildContext(result.Chunks, q.cfg.MaxContextChars)
	prompt := fmt.Sprintf(q.loadPrompt(), contextText, question)

	models := q.selectModels(opts.Models)
	if len(models) == 0 {
		return result, fmt.Errorf("answer: %w: no language model configured", domain.ErrNotConfigured)
	}

	retrieved := make(map[string]struct{})
	for _, id := range result.DocumentIDs() {
		retrieved[id] = struct{}{}
	}

	result.Answers = make([]domain.ModelAnswer, len(models))
	var g errgroup.Group
	for i, m := range models {
		g.Go(func() error {
			result.Answers[i] = q.askModel(ctx, m, prompt, retrieved)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, a := range result.Answers {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Model, a.Err))
		}
	}
	if len(errs) == len(result.Answers) {
		return result, errors.Join(errs...)
	}
	return result, nil
}

// askModel queries one model and validates its citations.
func (q *QueryEngine) askModel(
	ctx context.Context,
	m AnswerModel,
	prompt string,
	retrieved map[string]struct{},
) domain.ModelAnswer {
	start := time.Now()
	answer := domain.ModelAnswer{Model: m.Name}

	var text string
	_, err := q.retry.Do(ctx, "answer "+m.Name, func(ctx context.Context) error {
		var err error
		text, err = m.LLM.Complete(ctx, prompt, driven.SchemaHint{Name: "answer", Temperature: 0.1})
		return err
	})
	answer.Latency = time.Since(start)
	if err != nil {
		answer.Err = err
		logger.Warn("model failed %s", logger.KV("model", m.Name, "err", err.Error()))
		return answer
	}

	answer.Text = strings.TrimSpace(text)
	answer.Citations = ParseCitations(answer.Text, retrieved)
	if invalid := answer.InvalidCitations(); len(invalid) > 0 {
		logger.Warn("model cited unknown documents %s", logger.KV("model", m.Name, "count", len(invalid)))
	}
	return answer
}

func (q *QueryEngine) limits(opts domain.QueryOptions) (int, float64, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = q.cfg.TopK
	}
	if topK > domain.MaxTopK {
		topK = domain.MaxTopK
	}
	minScore := q.cfg.MinScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
		if minScore < -1 || minScore > 1 {
			return 0, 0, fmt.Errorf("answer: %w: min score %g must be between -1 and 1", domain.ErrInvalidInput, minScore)
		}
	}
	return topK, minScore, nil
}

// selectModels returns the configured models named in names, in
// configuration order. Empty names selects every model.
func (q *QueryEngine) selectModels(names []string) []AnswerModel {
	if len(names) == 0 {
		return q.models
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []AnswerModel
	for _, m := range q.models {
		if _, ok := want[m.Name]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (q *QueryEngine) loadPrompt() string {
	if q.promptStore == nil {
		return driven.DefaultPrompts[driven.PromptAnswer]
	}
	prompt, err := q.promptStore.Load(driven.PromptAnswer)
	if err != nil || prompt == "" {
		return driven.DefaultPrompts[driven.PromptAnswer]
	}
	return prompt
}

// BuildContext lays out retrieved chunks as one block per document.
//
// Documents are ordered by their best score and their chunks by score.
// Repeated chunk texts are dropped. The output stops growing once
// maxChars is reached; the first chunk is always included, truncated if
// needed.
func BuildContext(chunks []domain.ScoredChunk, maxChars int) string {
	type group struct {
		id     string
		best   float64
		first  int
		chunks []domain.ScoredChunk
	}
	groups := make(map[string]*group)
	var order []*group
	for i, sc := range chunks {
		g, ok := groups[sc.Chunk.DocumentID]
		if !ok {
			g = &group{id: sc.Chunk.DocumentID, best: sc.Score, first: i}
			groups[g.id] = g
			order = append(order, g)
		}
		if sc.Score > g.best {
			g.best = sc.Score
		}
		g.chunks = append(g.chunks, sc)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].best != order[j].best {
			return order[i].best > order[j].best
		}
		return order[i].first < order[j].first
	})

	var b strings.Builder
	seen := make(map[string]struct{})
	for _, g := range order {
		sort.SliceStable(g.chunks, func(i, j int) bool { return g.chunks[i].Score > g.chunks[j].Score })

		header := documentHeader(g.id, g.chunks[0].Chunk)
		wroteHeader := false
		for _, sc := range g.chunks {
			text := strings.TrimSpace(sc.Chunk.Content)
			if _, dup := seen[text]; dup || text == "" {
				continue
			}

			block := text + "\n"
			if !wroteHeader {
				block = header + block
				if b.Len() > 0 {
					block = "\n" + block
				}
			}
			if maxChars > 0 && b.Len()+len(block) > maxChars {
				if b.Len() == 0 {
					b.WriteString(truncateRunes(block, maxChars))
				}
				return strings.TrimRight(b.String(), "\n")
			}

			seen[text] = struct{}{}
			b.WriteString(block)
			wroteHeader = true
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func documentHeader(documentID string, c domain.Chunk) string {
	header := "[doc:" + documentID + "]"
	if name := c.Metadata[domain.SourcingFileName]; name != "" {
		header += " " + name
	}
	if t := c.Metadata[domain.SourcingDocumentType]; t != "" {
		header += " (" + t + ")"
	}
	return header + "\n"
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ParseCitations extracts the [doc:<id>] citations of an answer in order
// of first appearance. Citations of documents outside retrieved are kept
// and marked invalid.
func ParseCitations(text string, retrieved map[string]struct{}) []domain.Citation {
	var out []domain.Citation
	seen := make(map[string]struct{})
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		id := strings.TrimRight(m[1], ".,;:")
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		_, valid := retrieved[id]
		out = append(out, domain.Citation{DocumentID: id, Valid: valid})
	}
	return out
}
