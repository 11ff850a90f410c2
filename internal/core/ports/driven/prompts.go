package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptSummarize requests the structured summary of a document.
	// The template expects %s (metadata JSON) and %s (document text).
	PromptSummarize = "summarize"

	// PromptSummarizeStrict is the retry template after a malformed summary.
	// The template expects %s (validation error), %s (metadata JSON) and %s (document text).
	PromptSummarizeStrict = "summarize_strict"

	// PromptAnswer asks a model to answer from retrieved context with citations.
	// The template expects %s (context blocks) and %s (question).
	PromptAnswer = "answer"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}

// DefaultPrompts holds the built-in templates, keyed by prompt name.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptSummarize: `You are a legal analyst reviewing a scanned case document (French or English).
Extract a structured summary and answer with ONE JSON object only, no prose, using exactly these fields:
{
  "parties": [list of persons and organisations cited, as written],
  "essential_facts": "the essential facts, dates and amounts, in a few sentences",
  "inconsistencies": "contradictions or anomalies detected, or an empty string",
  "sourcing": {echo the metadata object below}
}

Metadata:
%s

Document:
%s`,

	PromptSummarizeStrict: `Your previous answer was rejected: %s

Answer with ONE JSON object and nothing else. No markdown, no comments, no extra fields.
Required fields and types:
- "parties": array of strings
- "essential_facts": string
- "inconsistencies": string
- "sourcing": object (copy the metadata below)

Metadata:
%s

Document:
%s`,

	PromptAnswer: `You are a legal assistant answering questions about a case file.
Answer in the language of the question, using ONLY the context below.
After every claim, cite the document that supports it as [doc:<id>], using
the identifiers shown in the context. Never cite an identifier that does not
appear in the context. If the context does not answer the question, say so.

Context:
%s

Question: %s

Answer:`,
}
