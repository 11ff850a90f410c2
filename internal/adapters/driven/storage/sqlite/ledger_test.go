package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestWatermarkLedger(t *testing.T) {
	ctx := context.Background()
	ledger := setupTestStore(t).Ledger()

	_, err := ledger.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	at := time.Date(2026, 3, 2, 10, 30, 0, 123456789, time.UTC)
	wm := domain.Watermark{DocumentID: "b", SourceHash: "sha256:s", NormalizedHash: "sha256:n", ChunkCount: 3, LastSuccess: at}
	require.NoError(t, ledger.Put(ctx, wm))
	require.NoError(t, ledger.Put(ctx, domain.Watermark{DocumentID: "a", LastSuccess: at}))

	got, err := ledger.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "sha256:s", got.SourceHash)
	assert.Equal(t, 3, got.ChunkCount)
	assert.True(t, at.Equal(got.LastSuccess))

	wm.ChunkCount = 4
	require.NoError(t, ledger.Put(ctx, wm))
	got, err = ledger.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 4, got.ChunkCount)

	all, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].DocumentID)

	require.NoError(t, ledger.Delete(ctx, "b"))
	require.NoError(t, ledger.Delete(ctx, "unknown"))
	_, err = ledger.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummaryStore(t *testing.T) {
	ctx := context.Background()
	summaries := setupTestStore(t).Summaries()

	_, err := summaries.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	summary := domain.Summary{
		DocumentID:      "doc-1",
		ContentHash:     "sha256:n",
		Parties:         []string{"M. Jean Durand", "SARL Dupont"},
		EssentialFacts:  "Le contrat a été signé.",
		Inconsistencies: "",
		Sourcing:        map[string]string{domain.SourcingFileName: "pv.pdf"},
		Model:           "gpt-4o-mini",
		CreatedAt:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, summaries.Save(ctx, summary))

	got, err := summaries.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, summary.Parties, got.Parties)
	assert.Equal(t, summary.Sourcing, got.Sourcing)
	assert.Equal(t, summary.EssentialFacts, got.EssentialFacts)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.True(t, summary.CreatedAt.Equal(got.CreatedAt))

	summary.Parties = []string{"SARL Dupont"}
	require.NoError(t, summaries.Save(ctx, summary))
	require.NoError(t, summaries.Save(ctx, domain.Summary{DocumentID: "doc-0"}))

	all, err := summaries.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "doc-0", all[0].DocumentID)
	assert.True(t, all[0].CreatedAt.IsZero())
	assert.Equal(t, []string{"SARL Dupont"}, all[1].Parties)

	require.NoError(t, summaries.Delete(ctx, "doc-1"))
	_, err = summaries.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
