package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

var tracer = otel.Tracer("github.com/custodia-labs/juris/internal/adapters/driven/ai")

// Circuit breaker tuning.
const (
	breakerMaxRequests = 1
	breakerInterval    = time.Minute
	breakerTimeout     = 30 * time.Second
	breakerMinRequests = 5
	breakerTripRatio   = 0.6
)

// guard rate-limits calls to one provider, trips a circuit breaker after
// repeated transient failures, and traces every call.
type guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func newGuard(name string, requestsPerSecond float64) *guard {
	g := &guard{name: name}
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && ratio >= breakerTripRatio
		},
		// Only provider faults count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || domain.Classify(err) != domain.ErrorClassTransient ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return g
}

// do runs fn under the limiter, the breaker and a span named op.
func (g *guard) do(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(append(attrs, attribute.String("provider", g.name))...)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			span.SetStatus(codes.Error, "rate limiter")
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%s: %w", g.name, domain.ErrRateLimited)
		}
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%s: %w: %w", g.name, err, domain.ErrProviderUnavailable)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Ensure guardedLLM implements the interface.
var _ driven.LLMProvider = (*guardedLLM)(nil)

// guardedLLM decorates an LLMProvider with a guard.
type guardedLLM struct {
	driven.LLMProvider
	guard *guard
}

// GuardLLM wraps llm with rate limiting, a circuit breaker and tracing.
func GuardLLM(name string, llm driven.LLMProvider, requestsPerSecond float64) driven.LLMProvider {
	return &guardedLLM{LLMProvider: llm, guard: newGuard(name, requestsPerSecond)}
}

func (g *guardedLLM) Complete(ctx context.Context, prompt string, hint driven.SchemaHint) (string, error) {
	var out string
	err := g.guard.do(ctx, "llm.complete", func(ctx context.Context) error {
		var err error
		out, err = g.LLMProvider.Complete(ctx, prompt, hint)
		return err
	},
		attribute.String("model", g.ModelName()),
		attribute.String("schema", hint.Name),
		attribute.Int("prompt_chars", len(prompt)),
	)
	return out, err
}

// Ensure guardedEmbedding implements the interface.
var _ driven.EmbeddingProvider = (*guardedEmbedding)(nil)

// guardedEmbedding decorates an EmbeddingProvider with a guard.
type guardedEmbedding struct {
	driven.EmbeddingProvider
	guard *guard
}

// GuardEmbedding wraps provider with rate limiting, a circuit breaker and tracing.
func GuardEmbedding(name string, provider driven.EmbeddingProvider, requestsPerSecond float64) driven.EmbeddingProvider {
	return &guardedEmbedding{EmbeddingProvider: provider, guard: newGuard(name, requestsPerSecond)}
}

func (g *guardedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := g.guard.do(ctx, "embedding.batch", func(ctx context.Context) error {
		var err error
		out, err = g.EmbeddingProvider.EmbedBatch(ctx, texts)
		return err
	},
		attribute.String("model", g.ModelName()),
		attribute.Int("texts", len(texts)),
	)
	return out, err
}
