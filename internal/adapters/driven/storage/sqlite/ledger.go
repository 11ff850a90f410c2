package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// ==================== Watermark Ledger ====================

// watermarkLedger implements driven.WatermarkLedger.
type watermarkLedger struct {
	store *Store
}

var _ driven.WatermarkLedger = (*watermarkLedger)(nil)

// Get retrieves the watermark of a document.
func (l *watermarkLedger) Get(ctx context.Context, documentID string) (*domain.Watermark, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT document_id, source_hash, normalized_hash, chunk_count, last_success
		FROM watermarks WHERE document_id = ?
	`, documentID)

	wm, err := scanWatermark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return wm, nil
}

// Put stores or replaces a watermark.
func (l *watermarkLedger) Put(ctx context.Context, wm domain.Watermark) error {
	return putWatermark(ctx, l.store.db, wm)
}

func putWatermark(ctx context.Context, ex execer, wm domain.Watermark) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO watermarks (document_id, source_hash, normalized_hash, chunk_count, last_success)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			source_hash = excluded.source_hash,
			normalized_hash = excluded.normalized_hash,
			chunk_count = excluded.chunk_count,
			last_success = excluded.last_success
	`, wm.DocumentID, wm.SourceHash, wm.NormalizedHash, wm.ChunkCount, formatTime(wm.LastSuccess))
	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	return nil
}

// Delete removes the watermark of a document.
func (l *watermarkLedger) Delete(ctx context.Context, documentID string) error {
	_, err := l.store.db.ExecContext(ctx, "DELETE FROM watermarks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting watermark: %w", err)
	}
	return nil
}

// List returns every watermark ordered by document ID.
func (l *watermarkLedger) List(ctx context.Context) ([]domain.Watermark, error) {
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT document_id, source_hash, normalized_hash, chunk_count, last_success
		FROM watermarks ORDER BY document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer rows.Close()

	var out []domain.Watermark //nolint:prealloc // size unknown from query
	for rows.Next() {
		wm, err := scanWatermark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *wm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watermarks: %w", err)
	}
	return out, nil
}

// ==================== Summary Store ====================

// summaryStore implements driven.SummaryStore.
type summaryStore struct {
	store *Store
}

var _ driven.SummaryStore = (*summaryStore)(nil)

// Get retrieves the summary of a document.
func (s *summaryStore) Get(ctx context.Context, documentID string) (*domain.Summary, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, content_hash, parties, essential_facts, inconsistencies, sourcing, model, created_at
		FROM summaries WHERE document_id = ?
	`, documentID)

	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Save stores or replaces the summary of a document.
func (s *summaryStore) Save(ctx context.Context, summary domain.Summary) error {
	return saveSummary(ctx, s.store.db, summary)
}

func saveSummary(ctx context.Context, ex execer, summary domain.Summary) error {
	partiesJSON, err := json.Marshal(summary.Parties)
	if err != nil {
		return fmt.Errorf("marshalling parties: %w", err)
	}
	sourcingJSON, err := json.Marshal(summary.Sourcing)
	if err != nil {
		return fmt.Errorf("marshalling sourcing: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO summaries (document_id, content_hash, parties, essential_facts, inconsistencies,
			sourcing, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			parties = excluded.parties,
			essential_facts = excluded.essential_facts,
			inconsistencies = excluded.inconsistencies,
			sourcing = excluded.sourcing,
			model = excluded.model,
			created_at = excluded.created_at
	`, summary.DocumentID, summary.ContentHash, string(partiesJSON), summary.EssentialFacts,
		summary.Inconsistencies, string(sourcingJSON), summary.Model, formatNullableTime(summary.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

// Delete removes the summary of a document.
func (s *summaryStore) Delete(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM summaries WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting summary: %w", err)
	}
	return nil
}

// List returns every summary ordered by document ID.
func (s *summaryStore) List(ctx context.Context) ([]domain.Summary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, content_hash, parties, essential_facts, inconsistencies, sourcing, model, created_at
		FROM summaries ORDER BY document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var out []domain.Summary //nolint:prealloc // size unknown from query
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}
	return out, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWatermark(row scanner) (*domain.Watermark, error) {
	var wm domain.Watermark
	var lastSuccess string
	if err := row.Scan(&wm.DocumentID, &wm.SourceHash, &wm.NormalizedHash, &wm.ChunkCount, &lastSuccess); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning watermark: %w", err)
	}
	wm.LastSuccess = parseNullableTime(sql.NullString{String: lastSuccess, Valid: true})
	return &wm, nil
}

func scanSummary(row scanner) (*domain.Summary, error) {
	var summary domain.Summary
	var partiesJSON, sourcingJSON string
	var createdAt sql.NullString
	if err := row.Scan(&summary.DocumentID, &summary.ContentHash, &partiesJSON, &summary.EssentialFacts,
		&summary.Inconsistencies, &sourcingJSON, &summary.Model, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning summary: %w", err)
	}

	if err := json.Unmarshal([]byte(partiesJSON), &summary.Parties); err != nil {
		return nil, fmt.Errorf("unmarshaling parties: %w", err)
	}
	if err := json.Unmarshal([]byte(sourcingJSON), &summary.Sourcing); err != nil {
		return nil, fmt.Errorf("unmarshaling sourcing: %w", err)
	}
	summary.CreatedAt = parseNullableTime(createdAt)
	return &summary, nil
}

// formatTime formats a time as RFC3339 with nanoseconds in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// formatNullableTime formats a time, or returns nil for the zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable timestamp. Returns the zero time
// if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
