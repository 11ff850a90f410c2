package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

var _ driven.DocumentCommitter = (*Store)(nil)

// CommitDocument replaces the chunks of a document and writes its summary
// and watermark in one transaction.
func (s *Store) CommitDocument(ctx context.Context, c driven.DocumentCommit) error {
	docID := c.Watermark.DocumentID
	if docID == "" {
		return fmt.Errorf("commit: %w: empty document id", domain.ErrInvalidInput)
	}

	vectors := &vectorStore{store: s}
	info, err := vectors.Describe(ctx)
	if err != nil {
		return err
	}
	if err := validateChunks(info, c.Chunks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	keep := make(map[string]struct{}, len(c.Chunks))
	for _, chunk := range c.Chunks {
		keep[chunk.ID] = struct{}{}
	}
	rows, err := tx.QueryContext(ctx, "SELECT id FROM chunks WHERE document_id = ?", docID)
	if err != nil {
		return fmt.Errorf("querying chunk ids: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning chunk id: %w", err)
		}
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("iterating chunk ids: %w", err)
	}

	if len(c.Chunks) > 0 {
		if err := upsertChunks(ctx, tx, c.Chunks); err != nil {
			return err
		}
	}
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting chunk %s: %w", id, err)
		}
	}
	if err := saveSummary(ctx, tx, c.Summary); err != nil {
		return err
	}
	if err := putWatermark(ctx, tx, c.Watermark); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document %s: %w", docID, err)
	}
	return nil
}
