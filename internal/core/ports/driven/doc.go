// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SourceConnector: Lists and fetches documents from a document source
//   - OCRAdapter: Extracts per-page text from document bytes
//   - EmbeddingProvider: Generates fixed-dimension vectors
//   - LLMProvider: Completes prompts for summaries and answers
//   - VectorStore: Durable upsert/query/delete of embedded chunks
//   - WatermarkLedger: Per-document processed hashes, durable across restarts
//   - SummaryStore: Summaries keyed by document, reusable by content hash
//   - ConfigStore: Application configuration
//   - PromptStore: Editable prompt templates
//
// # Optional Interfaces
//
//   - Watcher: Change notifications from a source (filesystem only)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or OCR package
package driven
