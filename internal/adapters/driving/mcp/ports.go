package mcp

import (
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Query answers questions. Required.
	Query driving.QueryEngine

	// Entities serves the entity map.
	Entities driving.EntityService

	// Status serves ingestion status and summaries.
	Status driving.StatusService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryEngine
	}
	return nil
}
