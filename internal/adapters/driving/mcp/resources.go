package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the URI scheme of juris resources.
const uriScheme = "juris://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Status == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents of the case file that have been ingested",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "summaries/{+documentId}",
		Name:        "document-summary",
		Description: "Parties, essential facts and inconsistencies extracted from one document",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)
}

// handleDocumentsResource lists the ingested documents with the URI of
// their summary.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID          string `json:"id"`
		Chunks      int    `json:"chunks"`
		LastSuccess string `json:"last_success"`
		Summary     string `json:"summary"`
	}

	infos := make([]docInfo, len(status.Watermarks))
	for i, wm := range status.Watermarks {
		infos[i] = docInfo{
			ID:          wm.DocumentID,
			Chunks:      wm.ChunkCount,
			LastSuccess: wm.LastSuccess.UTC().Format("2006-01-02T15:04:05Z"),
			Summary:     uriScheme + "summaries/" + wm.DocumentID,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSummaryResource returns the stored summary of one document.
func (s *Server) handleSummaryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	summary, err := s.ports.Status.Summary(ctx, docID)
	if isNotFound(err) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting summary: %w", err)
	}

	data, err := json.MarshalIndent(struct {
		DocumentID      string            `json:"document_id"`
		Parties         []string          `json:"parties"`
		EssentialFacts  string            `json:"essential_facts"`
		Inconsistencies string            `json:"inconsistencies"`
		Sourcing        map[string]string `json:"sourcing"`
		Model           string            `json:"model"`
	}{
		DocumentID:      summary.DocumentID,
		Parties:         summary.Parties,
		EssentialFacts:  summary.EssentialFacts,
		Inconsistencies: summary.Inconsistencies,
		Sourcing:        summary.Sourcing,
		Model:           summary.Model,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling summary: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like
// juris://summaries/{documentId}. Document IDs may contain slashes.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "summaries/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
