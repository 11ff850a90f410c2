// Package driving defines the ports the CLI and the MCP server call into:
// ingestion runs, cited questions, the entity map, index status and
// settings.
//
// Implementations live in internal/core/services.
package driving
