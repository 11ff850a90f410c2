// Package mcp exposes juris to AI assistants over the Model Context
// Protocol: cited answers, the entity map, ingestion status and document
// summaries.
package mcp

import "errors"

// ErrMissingQueryEngine is returned when the query engine is not provided.
var ErrMissingQueryEngine = errors.New("mcp: query engine is required")
