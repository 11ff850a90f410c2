package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid summary URI", uri: "juris://summaries/doc-456", expected: "doc-456"},
		{name: "nested ID", uri: "juris://summaries/dossier/pv_audition.pdf", expected: "dossier/pv_audition.pdf"},
		{name: "invalid prefix", uri: "file://summaries/doc-456", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()
	status := &mockStatusService{status: &driving.IndexStatus{
		Watermarks: []domain.Watermark{
			{DocumentID: "dossier/pv.pdf", ChunkCount: 4, LastSuccess: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)},
		},
	}}
	server := newTestServer(t, &Ports{Query: &mockQueryEngine{}, Status: status})

	result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("juris://documents"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	text := result.Contents[0].Text
	assert.Contains(t, text, `"id": "dossier/pv.pdf"`)
	assert.Contains(t, text, `"summary": "juris://summaries/dossier/pv.pdf"`)
	assert.Contains(t, text, `"last_success": "2026-01-05T08:00:00Z"`)

	status.err = errors.New("database error")
	_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("juris://documents"))
	assert.ErrorContains(t, err, "listing documents")
}

func TestServer_handleSummaryResource(t *testing.T) {
	ctx := context.Background()
	status := &mockStatusService{summaries: map[string]*domain.Summary{
		"pv-1": {
			DocumentID:     "pv-1",
			Parties:        []string{"M. Jean Durand"},
			EssentialFacts: "M. Durand a signé le contrat.",
			Sourcing:       map[string]string{domain.SourcingFileName: "pv_audition.pdf"},
		},
	}}
	server := newTestServer(t, &Ports{Query: &mockQueryEngine{}, Status: status})

	t.Run("returns the summary", func(t *testing.T) {
		result, err := server.handleSummaryResource(ctx, makeReadResourceRequest("juris://summaries/pv-1"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "M. Jean Durand")
		assert.Contains(t, result.Contents[0].Text, "pv_audition.pdf")
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := server.handleSummaryResource(ctx, makeReadResourceRequest("juris://summaries/ghost"))
		assert.Error(t, err)
	})

	t.Run("invalid URI", func(t *testing.T) {
		_, err := server.handleSummaryResource(ctx, makeReadResourceRequest("juris://other/pv-1"))
		assert.Error(t, err)
	})
}
