package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure Committer implements the interface.
var _ driven.DocumentCommitter = (*Committer)(nil)

// Committer commits documents over an in-memory vector store and any
// summary store and ledger. A failed write restores what was changed
// before it.
type Committer struct {
	vectors   *VectorStore
	summaries driven.SummaryStore
	ledger    driven.WatermarkLedger
}

// NewCommitter creates a committer writing to the given stores.
func NewCommitter(vectors *VectorStore, summaries driven.SummaryStore, ledger driven.WatermarkLedger) *Committer {
	return &Committer{vectors: vectors, summaries: summaries, ledger: ledger}
}

// CommitDocument writes the summary, then the chunks, then the watermark.
func (c *Committer) CommitDocument(ctx context.Context, commit driven.DocumentCommit) error {
	docID := commit.Watermark.DocumentID
	if docID == "" {
		return fmt.Errorf("commit: %w: empty document id", domain.ErrInvalidInput)
	}

	c.vectors.mu.RLock()
	err := c.vectors.validate(commit.Chunks)
	c.vectors.mu.RUnlock()
	if err != nil {
		return err
	}

	previousSummary, err := c.summaries.Get(ctx, docID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get summary: %w", err)
		}
		previousSummary = nil
	}

	if err := c.summaries.Save(ctx, commit.Summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}

	previousChunks, err := c.vectors.replaceDocument(docID, commit.Chunks)
	if err != nil {
		return errors.Join(err, c.restoreSummary(ctx, docID, previousSummary))
	}

	if err := c.ledger.Put(ctx, commit.Watermark); err != nil {
		_, _ = c.vectors.replaceDocument(docID, previousChunks)
		return errors.Join(fmt.Errorf("put watermark: %w", err), c.restoreSummary(ctx, docID, previousSummary))
	}
	return nil
}

func (c *Committer) restoreSummary(ctx context.Context, documentID string, previous *domain.Summary) error {
	if previous == nil {
		return c.summaries.Delete(ctx, documentID)
	}
	return c.summaries.Save(ctx, *previous)
}
