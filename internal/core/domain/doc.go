// Package domain defines the core business entities for juris.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceEntry / SourceDocument: a document as listed and fetched from a source
//   - NormalizedText: canonical per-document text with page markers
//   - Summary: structured extraction produced by a language model
//   - EntityMap: derived cross-document index of named parties
//   - Chunk: an embedded span of normalized text, the unit of retrieval
//   - Watermark: the last successfully processed hashes of a document
//   - QueryResult: retrieved chunks and per-model cited answers
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
