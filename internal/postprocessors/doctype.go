package postprocessors

import (
	"context"
	"path"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/textfold"
)

// DocTypeProcessor stamps provenance metadata on every chunk: file name,
// file path and the document type detected from the file name.
type DocTypeProcessor struct{}

var _ driven.PostProcessor = (*DocTypeProcessor)(nil)

// Name returns the processor name.
func (DocTypeProcessor) Name() string {
	return "doctype"
}

// Process adds provenance metadata to chunks.
func (DocTypeProcessor) Process(
	_ context.Context,
	_ *domain.NormalizedText,
	entry domain.SourceEntry,
	chunks []domain.Chunk,
) ([]domain.Chunk, error) {
	docType := DetectType(entry)
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]string)
		}
		chunks[i].Metadata[domain.SourcingFileName] = entry.Name
		chunks[i].Metadata[domain.SourcingFilePath] = entry.Path
		chunks[i].Metadata[domain.SourcingDocumentType] = docType.String()
	}
	return chunks, nil
}

// DetectType classifies an entry from its accent-folded file name.
func DetectType(entry domain.SourceEntry) domain.DocumentType {
	name := entry.Name
	if name == "" {
		name = path.Base(entry.Path)
	}
	return domain.DetectDocumentType(textfold.Fold(name))
}
