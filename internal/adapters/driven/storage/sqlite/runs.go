package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// runHistory implements driven.RunHistory.
type runHistory struct {
	store *Store
}

var _ driven.RunHistory = (*runHistory)(nil)

// Record appends a run.
func (h *runHistory) Record(ctx context.Context, run domain.RunRecord) error {
	_, err := h.store.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, started_at, finished_at, succeeded, skipped, failed,
			removed, cancelled, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Source,
		formatNullableTime(run.Started), formatNullableTime(run.Finished),
		run.Succeeded, run.Skipped, run.Failed, run.Removed,
		boolToInt(run.Cancelled), nullString(run.Error))
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// List returns recent runs, most recent first. A limit of zero or less
// returns every run.
func (h *runHistory) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.store.db.QueryContext(ctx, `
		SELECT run_id, source, started_at, finished_at, succeeded, skipped, failed, removed, cancelled, error
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.RunRecord
		var started, finished, errMsg sql.NullString
		var cancelled int
		if err := rows.Scan(&run.RunID, &run.Source, &started, &finished,
			&run.Succeeded, &run.Skipped, &run.Failed, &run.Removed, &cancelled, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Started = parseNullableTime(started)
		run.Finished = parseNullableTime(finished)
		run.Cancelled = cancelled == 1
		run.Error = errMsg.String
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// Prune keeps only the keep most recent runs.
func (h *runHistory) Prune(ctx context.Context, keep int) error {
	_, err := h.store.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE seq NOT IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (ORDER BY seq DESC) AS rn
				FROM runs
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning runs: %w", err)
	}
	return nil
}
