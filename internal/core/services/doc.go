// Package services implements the driving ports: the ingestion
// orchestrator, the query engine, the entity map, status and settings.
//
// Services depend only on domain types and driven ports. Provider
// adapters, stores and connectors are injected by internal/app.
package services
