// Package app wires the adapters and services from the stored settings.
//
// A Container holds what every command needs (configuration, storage,
// read-only services). An Engine adds the parts that talk to external
// providers and is only built by commands that ingest or answer.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/juris/internal/adapters/driven/ai"
	"github.com/custodia-labs/juris/internal/adapters/driven/config/file"
	"github.com/custodia-labs/juris/internal/adapters/driven/ocr"
	"github.com/custodia-labs/juris/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/juris/internal/connectors"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/services"
	"github.com/custodia-labs/juris/internal/logger"
	"github.com/custodia-labs/juris/internal/postprocessors"
)

// Container holds the configuration, the store and the services that
// need no provider.
type Container struct {
	Dir      string
	Config   *file.ConfigStore
	Prompts  *file.PromptStore
	Settings *services.SettingsService
	Store    *sqlite.Store
	Status   *services.StatusService
	Entities *services.EntityService
}

// Open opens the configuration and database under dir, ~/.juris when
// dir is empty.
func Open(dir string) (*Container, error) {
	if dir == "" {
		d, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	config, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	store, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	status := services.NewStatusService(store.Vectors(), store.Ledger(), store.Summaries())
	status.SetRunHistory(store.Runs())

	return &Container{
		Dir:      dir,
		Config:   config,
		Prompts:  prompts,
		Settings: services.NewSettingsService(config),
		Store:    store,
		Status:   status,
		Entities: services.NewEntityService(store.Summaries()),
	}, nil
}

// Close closes the database.
func (c *Container) Close() error {
	return c.Store.Close()
}

// Engine holds the provider-backed services.
type Engine struct {
	Settings *domain.AppSettings
	AI       *ai.InitResult
	Source   driven.SourceConnector
	OCR      driven.OCRAdapter
	Query    *services.QueryEngine
	Ingestor *services.IngestOrchestrator
	Runner   *services.Runner

	// Watcher is nil when the source cannot report changes.
	Watcher driven.Watcher
}

// Close releases the providers.
func (e *Engine) Close() error {
	e.AI.Close()
	return nil
}

// Engine validates the settings and builds the providers, the source
// and the services on top of them.
func (c *Container) Engine(ctx context.Context) (*Engine, error) {
	if err := c.Settings.Validate(); err != nil {
		return nil, err
	}
	settings, err := c.Settings.Get()
	if err != nil {
		return nil, err
	}

	result, err := ai.Init(ctx, settings)
	if err != nil {
		return nil, err
	}
	engine, err := c.build(ctx, settings, result)
	if err != nil {
		result.Close()
		return nil, err
	}
	return engine, nil
}

func (c *Container) build(ctx context.Context, settings *domain.AppSettings, result *ai.InitResult) (*Engine, error) {
	retry := RetryPolicy(settings.Ingest)

	source, err := connectors.New(ctx, settings.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	reader, err := ocr.New(ctx, settings.OCR, settings.Ingest.CallTimeout)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, settings.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// The first configured model writes the summaries.
	summarizer := services.NewSummarizer(result.Models[0].LLM, retry)
	summarizer.SetPromptStore(c.Prompts)

	embedder := services.NewEmbedder(result.Embedding, retry, settings.Ingest.MaxBatchSize, settings.Ingest.MaxBatchBytes)

	models := make([]services.AnswerModel, len(result.Models))
	for i, m := range result.Models {
		models[i] = services.AnswerModel{Name: m.Spec.String(), LLM: m.LLM}
	}
	query := services.NewQueryEngine(embedder, c.Store.Vectors(), models, retry, settings.Retrieval)
	query.SetPromptStore(c.Prompts)

	ingestor := services.NewIngestOrchestrator(
		source, reader, summarizer, pipeline, embedder,
		c.Store.Vectors(), c.Store.Ledger(), c.Store.Summaries(), c.Store,
		retry, settings.Ingest,
	)

	engine := &Engine{
		Settings: settings,
		AI:       result,
		Source:   source,
		OCR:      reader,
		Query:    query,
		Ingestor: ingestor,
		Runner:   services.NewRunner(ingestor, c.Store.Runs()),
	}
	if w, ok := source.(driven.Watcher); ok {
		engine.Watcher = w
	}
	logger.Debug("engine ready %s", logger.KV(
		"source", source.Name(), "ocr", reader.Name(),
		"embedding", result.Embedding.ModelName(), "models", len(models),
	))
	return engine, nil
}

// Check builds the providers and pings each one. Settings errors are
// returned before any provider is contacted.
func (c *Container) Check(ctx context.Context) ([]ai.CheckResult, error) {
	settings, err := c.Settings.Get()
	if err != nil {
		return nil, err
	}
	result, err := ai.Init(ctx, settings)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	checks := result.Check(ctx)
	for _, w := range result.Warnings {
		checks = append(checks, ai.CheckResult{Name: "llm", Err: errors.New(w)})
	}
	return checks, nil
}

// RetryPolicy derives the provider retry policy from the ingestion
// settings.
func RetryPolicy(settings domain.IngestSettings) services.RetryPolicy {
	policy := services.DefaultRetryPolicy()
	if settings.MaxAttempts > 0 {
		policy.MaxAttempts = settings.MaxAttempts
	}
	if settings.CallTimeout > 0 {
		policy.Timeout = settings.CallTimeout
	}
	return policy
}
