package domain

import "time"

// Sourcing metadata keys echoed into every summary.
const (
	SourcingFileName     = "file_name"
	SourcingFilePath     = "file_path"
	SourcingDocumentType = "document_type"
	SourcingModifiedAt   = "modified_at"
	SourcingPages        = "pages"
)

// Summary is the structured extraction of one normalized document.
// There is one summary per normalized content hash.
type Summary struct {
	// DocumentID identifies the source document.
	DocumentID string

	// ContentHash is the normalized text hash the summary was produced from.
	ContentHash string

	// Parties lists the persons and organisations cited.
	Parties []string

	// EssentialFacts is the prose account of the essential facts.
	EssentialFacts string

	// Inconsistencies describes contradictions detected in the document.
	Inconsistencies string

	// Sourcing echoes the input metadata (file name, path, type, pages).
	Sourcing map[string]string

	// Model is the language model that produced the summary.
	Model string

	// CreatedAt is when the summary was produced.
	CreatedAt time.Time
}
