package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
	"github.com/custodia-labs/juris/internal/textfold"
)

var tracer = otel.Tracer("github.com/custodia-labs/juris/internal/core/services")

// Ensure IngestOrchestrator implements the interface.
var _ driving.Ingestor = (*IngestOrchestrator)(nil)

// IngestOrchestrator drives documents from the source into the index:
// fetch, OCR, normalize, summarize, chunk, embed and persist.
type IngestOrchestrator struct {
	connector  driven.SourceConnector
	ocr        driven.OCRAdapter
	summarizer *Summarizer
	pipeline   driven.PostProcessorPipeline
	embedder   *Embedder
	vectors    driven.VectorStore
	ledger     driven.WatermarkLedger
	summaries  driven.SummaryStore
	commit     driven.DocumentCommitter

	retry   RetryPolicy
	workers int
	prune   bool

	locks *keyedMutex
	now   func() time.Time
}

// NewIngestOrchestrator creates an ingestion orchestrator.
// The retry policy bounds OCR calls and provides the per-call timeout
// used for fetches.
func NewIngestOrchestrator(
	connector driven.SourceConnector,
	ocr driven.OCRAdapter,
	summarizer *Summarizer,
	pipeline driven.PostProcessorPipeline,
	embedder *Embedder,
	vectors driven.VectorStore,
	ledger driven.WatermarkLedger,
	summaries driven.SummaryStore,
	commit driven.DocumentCommitter,
	retry RetryPolicy,
	cfg domain.IngestSettings,
) *IngestOrchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = domain.DefaultWorkers
	}
	return &IngestOrchestrator{
		connector:  connector,
		ocr:        ocr,
		summarizer: summarizer,
		pipeline:   pipeline,
		embedder:   embedder,
		vectors:    vectors,
		ledger:     ledger,
		summaries:  summaries,
		commit:     commit,
		retry:      retry,
		workers:    workers,
		prune:      cfg.Prune,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// IngestAll runs one batch over every document of the source.
//
// A failing document does not stop the batch. Fatal errors (model
// mismatch, missing credentials) abort it: documents not yet started are
// reported failed with the cause. When ctx is cancelled no new document
// starts and in-flight documents complete.
//
//nolint:gocognit // Orchestration function with necessary sequential steps
func (o *IngestOrchestrator) IngestAll(ctx context.Context, opts driving.IngestOptions) (*domain.BatchReport, error) {
	report := &domain.BatchReport{
		RunID:   uuid.NewString(),
		Source:  o.connector.Name(),
		Started: o.now(),
	}

	ctx, span := tracer.Start(ctx, "ingest.batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("ingest.run_id", report.RunID),
		attribute.String("ingest.source", report.Source),
	)
	logger.Section("Ingest " + report.Source)

	fail := func(err error) (*domain.BatchReport, error) {
		report.Finished = o.now()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	// 1. List the source
	entries, err := o.connector.List(ctx)
	if err != nil {
		return fail(fmt.Errorf("list %s: %w", report.Source, err))
	}

	// 2. Bind the index to the embedding model
	if err := o.vectors.Bind(ctx, o.embedder.IndexInfo()); err != nil {
		return fail(fmt.Errorf("bind index: %w", err))
	}

	selected := selectEntries(entries, opts.Only)
	span.SetAttributes(attribute.Int("ingest.documents", len(selected)))
	logger.Info("ingest run %s", logger.KV("run", report.RunID, "documents", len(selected), "workers", o.workersFor(opts)))

	// 3. Process documents with bounded concurrency
	runCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	outcomes := make([]domain.IngestOutcome, len(selected))
	started := make([]bool, len(selected))
	var notify sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(o.workersFor(opts))
	for i, entry := range selected {
		if runCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			started[i] = true

			// In-flight documents finish even if the run is cancelled.
			out := o.ingestDocument(context.WithoutCancel(runCtx), entry, opts.Force)
			outcomes[i] = out
			if out.Err != nil && domain.IsFatal(out.Err) {
				abort(out.Err)
			}

			if opts.OnOutcome != nil {
				notify.Lock()
				opts.OnOutcome(out)
				notify.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	// 4. Report documents that never started
	cause := context.Cause(runCtx)
	var fatal error
	if cause != nil && domain.IsFatal(cause) {
		fatal = cause
	}
	for i, entry := range selected {
		if started[i] {
			continue
		}
		outcomes[i] = domain.IngestOutcome{
			DocumentID: entry.ID,
			Name:       entry.Name,
			Status:     domain.IngestFailed,
			Err:        cause,
		}
		if fatal == nil {
			report.Cancelled = true
		}
	}
	report.Outcomes = outcomes

	// 5. Prune documents that left the source
	if o.prune && len(opts.Only) == 0 && cause == nil {
		removed, err := o.pruneMissing(ctx, entries)
		report.Outcomes = append(report.Outcomes, removed...)
		if err != nil {
			logger.Warn("prune: %v", err)
		}
	}

	report.Finished = o.now()
	span.SetAttributes(
		attribute.Int("ingest.success", report.Count(domain.IngestSuccess)),
		attribute.Int("ingest.skipped", report.Count(domain.IngestSkipped)),
		attribute.Int("ingest.failed", report.Count(domain.IngestFailed)),
		attribute.Int("ingest.removed", report.Count(domain.IngestRemoved)),
		attribute.Bool("ingest.cancelled", report.Cancelled),
	)
	logger.Info("ingest run finished %s", logger.KV(
		"run", report.RunID,
		"success", report.Count(domain.IngestSuccess),
		"skipped", report.Count(domain.IngestSkipped),
		"failed", report.Count(domain.IngestFailed),
		"removed", report.Count(domain.IngestRemoved),
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond),
	))

	if fatal != nil {
		return fail(fmt.Errorf("ingest aborted: %w", fatal))
	}
	if report.Cancelled {
		return fail(fmt.Errorf("ingest cancelled: %w", ctx.Err()))
	}
	return report, nil
}

// IngestOne processes a single document outside of a batch.
func (o *IngestOrchestrator) IngestOne(ctx context.Context, entry domain.SourceEntry) domain.IngestOutcome {
	if err := o.vectors.Bind(ctx, o.embedder.IndexInfo()); err != nil {
		return domain.IngestOutcome{
			DocumentID: entry.ID,
			Name:       entry.Name,
			Status:     domain.IngestFailed,
			Err:        fmt.Errorf("bind index: %w", err),
		}
	}
	return o.ingestDocument(ctx, entry, false)
}

func (o *IngestOrchestrator) workersFor(opts driving.IngestOptions) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return o.workers
}

// ingestDocument runs the per-document steps under the document's lock
// and turns the result into an outcome.
func (o *IngestOrchestrator) ingestDocument(ctx context.Context, entry domain.SourceEntry, force bool) domain.IngestOutcome {
	start := o.now()

	unlock := o.locks.Lock(entry.ID)
	defer unlock()

	ctx, span := tracer.Start(ctx, "ingest.document")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", entry.ID),
		attribute.String("document.name", entry.Name),
	)

	out := domain.IngestOutcome{DocumentID: entry.ID, Name: entry.Name}
	err := o.process(ctx, entry, force, &out)
	out.Duration = o.now().Sub(start)

	if err != nil {
		out.Status = domain.IngestFailed
		out.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("%s %s", out.Status, logger.KV(
			"doc", entry.ID, "class", domain.Classify(err), "err", err.Error(),
		))
		return out
	}

	span.SetAttributes(
		attribute.String("ingest.status", string(out.Status)),
		attribute.Int("ingest.chunks", out.Chunks),
	)
	logger.Info("%s %s", out.Status, logger.KV(
		"doc", entry.ID,
		"chunks", out.Chunks,
		"summary_reused", out.SummaryReused,
		"embedding_reused", out.EmbeddingReused,
		"duration", out.Duration.Round(time.Millisecond),
	))
	return out
}

// process performs the ingestion steps. Nothing is persisted before the
// final commit, so a failure at any step leaves the document as it was,
// to be retried next run.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *IngestOrchestrator) process(
	ctx context.Context,
	entry domain.SourceEntry,
	force bool,
	out *domain.IngestOutcome,
) error {
	// 1. Skip documents whose source content is unchanged
	wm, err := o.ledger.Get(ctx, entry.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get watermark: %w", err)
		}
		wm = nil
	}
	if !force && wm != nil && entry.ContentHash != "" && wm.SourceHash == entry.ContentHash {
		out.Status = domain.IngestSkipped
		out.Chunks = wm.ChunkCount
		return nil
	}

	// 2. Fetch the payload
	doc, err := o.fetch(ctx, entry)
	if err != nil {
		return err
	}
	sourceHash := entry.ContentHash
	if sourceHash == "" {
		sourceHash = domain.HashBytes(doc.Content)
		if !force && wm != nil && wm.SourceHash == sourceHash {
			out.Status = domain.IngestSkipped
			out.Chunks = wm.ChunkCount
			return nil
		}
	}

	// 3. OCR
	var pages []string
	if _, err := o.retry.Do(ctx, "ocr "+entry.ID, func(ctx context.Context) error {
		var err error
		pages, err = o.ocr.Extract(ctx, doc)
		return err
	}); err != nil {
		return fmt.Errorf("ocr %s: %w", o.ocr.Name(), err)
	}

	// 4. Normalize
	text, err := Normalize(entry.ID, pages)
	if err != nil {
		return err
	}

	// 5. Unchanged text keeps its summary and chunks
	if !force && wm != nil && wm.NormalizedHash == text.ContentHash {
		wm.SourceHash = sourceHash
		wm.LastSuccess = o.now().UTC()
		if err := o.ledger.Put(ctx, *wm); err != nil {
			return fmt.Errorf("put watermark: %w", err)
		}
		out.Status = domain.IngestSuccess
		out.Chunks = wm.ChunkCount
		out.SummaryReused = true
		out.EmbeddingReused = true
		return nil
	}

	// 6. Summarize, reusing a summary of the same text
	metadata := sourcingMetadata(entry, len(pages))
	summary, reused, err := o.summarize(ctx, text, metadata, force)
	if err != nil {
		return err
	}
	out.SummaryReused = reused

	// 7. Chunk and tag
	chunks, err := o.pipeline.Process(ctx, text, entry)
	if err != nil {
		return fmt.Errorf("process chunks: %w", err)
	}

	// 8. Embed every chunk or none
	if err := o.embedder.Embed(ctx, entry.ID, chunks); err != nil {
		return err
	}

	// 9. Replace the chunks, summary and watermark together
	next := domain.Watermark{
		DocumentID:     entry.ID,
		SourceHash:     sourceHash,
		NormalizedHash: text.ContentHash,
		ChunkCount:     len(chunks),
		LastSuccess:    o.now().UTC(),
	}
	if err := o.commit.CommitDocument(ctx, driven.DocumentCommit{
		Chunks:    chunks,
		Summary:   *summary,
		Watermark: next,
	}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	out.Status = domain.IngestSuccess
	out.Chunks = len(chunks)
	return nil
}

// fetch downloads one document under the call timeout. Fetches are not
// retried within a run; the next run picks the document up again.
func (o *IngestOrchestrator) fetch(ctx context.Context, entry domain.SourceEntry) (*domain.SourceDocument, error) {
	if o.retry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.retry.Timeout)
		defer cancel()
	}

	doc, err := o.connector.Fetch(ctx, entry)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("fetch %s: %w: %w", entry.ID, domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("fetch %s: %w", entry.ID, err)
	}
	return doc, nil
}

// summarize returns the stored summary when it was produced from the same
// normalized text, and asks the summarizer otherwise.
func (o *IngestOrchestrator) summarize(
	ctx context.Context,
	text *domain.NormalizedText,
	metadata map[string]string,
	force bool,
) (*domain.Summary, bool, error) {
	if !force {
		stored, err := o.summaries.Get(ctx, text.DocumentID)
		switch {
		case err == nil && stored.ContentHash == text.ContentHash:
			stored.Sourcing = metadata
			return stored, true, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, false, fmt.Errorf("get summary: %w", err)
		}
	}

	summary, err := o.summarizer.Summarize(ctx, text, metadata)
	if err != nil {
		return nil, false, err
	}
	return summary, false, nil
}

// pruneMissing removes indexed documents absent from a complete listing.
func (o *IngestOrchestrator) pruneMissing(ctx context.Context, entries []domain.SourceEntry) ([]domain.IngestOutcome, error) {
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[e.ID] = struct{}{}
	}

	watermarks, err := o.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watermarks: %w", err)
	}

	var outcomes []domain.IngestOutcome
	var errs []error
	for _, wm := range watermarks {
		if _, ok := present[wm.DocumentID]; ok {
			continue
		}

		unlock := o.locks.Lock(wm.DocumentID)
		n, err := forgetDocument(ctx, o.vectors, o.summaries, o.ledger, wm.DocumentID)
		unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", wm.DocumentID, err))
			continue
		}

		logger.Info("%s %s", domain.IngestRemoved, logger.KV("doc", wm.DocumentID, "chunks", n))
		outcomes = append(outcomes, domain.IngestOutcome{
			DocumentID: wm.DocumentID,
			Status:     domain.IngestRemoved,
			Chunks:     n,
		})
	}
	return outcomes, errors.Join(errs...)
}

// forgetDocument deletes the chunks, summary and watermark of a document
// and returns the number of chunks removed.
func forgetDocument(
	ctx context.Context,
	vectors driven.VectorStore,
	summaries driven.SummaryStore,
	ledger driven.WatermarkLedger,
	documentID string,
) (int, error) {
	ids, err := vectors.ChunkIDs(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}
	if len(ids) > 0 {
		if err := vectors.Delete(ctx, ids...); err != nil {
			return 0, fmt.Errorf("delete chunks: %w", err)
		}
	}
	if err := summaries.Delete(ctx, documentID); err != nil {
		return len(ids), fmt.Errorf("delete summary: %w", err)
	}
	// The watermark goes last so a partial removal is retried.
	if err := ledger.Delete(ctx, documentID); err != nil {
		return len(ids), fmt.Errorf("delete watermark: %w", err)
	}
	return len(ids), nil
}

// selectEntries keeps the entries whose ID or name is listed in only.
// An empty filter keeps everything.
func selectEntries(entries []domain.SourceEntry, only []string) []domain.SourceEntry {
	if len(only) == 0 {
		return entries
	}
	want := make(map[string]struct{}, len(only))
	for _, id := range only {
		want[id] = struct{}{}
	}

	var out []domain.SourceEntry
	for _, e := range entries {
		_, byID := want[e.ID]
		_, byName := want[e.Name]
		if byID || byName {
			out = append(out, e)
		}
	}
	return out
}

// sourcingMetadata is the provenance passed to the summarizer.
func sourcingMetadata(entry domain.SourceEntry, pages int) map[string]string {
	meta := map[string]string{
		domain.SourcingFileName:     entry.Name,
		domain.SourcingFilePath:     entry.Path,
		domain.SourcingDocumentType: domain.DetectDocumentType(textfold.Fold(entry.Name)).String(),
		domain.SourcingPages:        strconv.Itoa(pages),
	}
	if !entry.ModifiedAt.IsZero() {
		meta[domain.SourcingModifiedAt] = entry.ModifiedAt.UTC().Format(time.RFC3339)
	}
	return meta
}
