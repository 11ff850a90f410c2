package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// Ensure Runner implements the interface.
var _ driving.IngestRunner = (*Runner)(nil)

// DefaultRunHistory is the number of runs kept in the history.
const DefaultRunHistory = 100

// Runner runs ingestion batches one at a time, once on demand or again
// each time the source reports a change. Every run is appended to the
// run history.
type Runner struct {
	ingestor driving.Ingestor
	history  driven.RunHistory
	keep     int

	// OnReport is called after every run.
	OnReport func(*domain.BatchReport, error)

	mu      sync.Mutex
	running bool
}

// NewRunner creates a runner. history may be nil.
func NewRunner(ingestor driving.Ingestor, history driven.RunHistory) *Runner {
	return &Runner{
		ingestor: ingestor,
		history:  history,
		keep:     DefaultRunHistory,
	}
}

// RunOnce runs one batch and records it.
func (r *Runner) RunOnce(ctx context.Context, opts driving.IngestOptions) (*domain.BatchReport, error) {
	report, err := r.ingestor.IngestAll(ctx, opts)
	if report != nil {
		r.record(ctx, report, err)
	}
	if r.OnReport != nil {
		r.OnReport(report, err)
	}
	return report, err
}

// Watch ingests immediately, then again for every trigger until ctx is
// cancelled or triggers is closed. Triggers arriving during a run are
// coalesced into a single follow-up run. A fatal error stops the loop
// and is returned; other run errors are logged and the loop continues.
//
// Watch returns nil when ctx is cancelled.
func (r *Runner) Watch(ctx context.Context, triggers <-chan struct{}, opts driving.IngestOptions) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("runner already watching")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	for {
		if err := r.step(ctx, opts); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-triggers:
			if !ok {
				return nil
			}
			logger.Debug("source changed, ingesting")
			drain(triggers)
		}
	}
}

func (r *Runner) step(ctx context.Context, opts driving.IngestOptions) error {
	if ctx.Err() != nil {
		return nil
	}
	_, err := r.RunOnce(ctx, opts)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return nil
	case domain.IsFatal(err):
		return err
	default:
		logger.Warn("ingestion run failed: %v", err)
		return nil
	}
}

func (r *Runner) record(ctx context.Context, report *domain.BatchReport, runErr error) {
	if r.history == nil {
		return
	}
	// Cancelled runs are recorded too.
	ctx = context.WithoutCancel(ctx)
	if err := r.history.Record(ctx, domain.NewRunRecord(report, runErr)); err != nil {
		logger.Warn("record run %s: %v", report.RunID, err)
		return
	}
	if err := r.history.Prune(ctx, r.keep); err != nil {
		logger.Warn("prune run history: %v", err)
	}
}

// drain empties a channel without blocking.
func drain(ch <-chan struct{}) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
