package domain

import (
	"math"
	"time"
)

// ScoredChunk is a retrieved chunk with its relevance score.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the cosine similarity between question and chunk, in [-1, 1].
	Score float64
}

// Citation is a document identifier cited by a model answer.
type Citation struct {
	// DocumentID is the cited identifier as returned by the model.
	DocumentID string

	// Valid is false when the identifier is not among the retrieved documents.
	Valid bool
}

// ModelAnswer is one model's independent answer.
type ModelAnswer struct {
	// Model identifies the provider and model ("openai:gpt-4o-mini").
	Model string

	// Text is the synthesized answer.
	Text string

	// Citations lists the cited documents in order of first appearance.
	Citations []Citation

	// Err is set when this model failed; other models are unaffected.
	Err error

	// Latency is the time spent waiting for this model.
	Latency time.Duration
}

// InvalidCitations returns the citations that reference documents outside
// the retrieved set.
func (a ModelAnswer) InvalidCitations() []Citation {
	var out []Citation
	for _, c := range a.Citations {
		if !c.Valid {
			out = append(out, c)
		}
	}
	return out
}

// QueryResult is the outcome of answering one question.
type QueryResult struct {
	// Question is the query text.
	Question string

	// Chunks holds the retrieved chunks ordered by descending score.
	Chunks []ScoredChunk

	// Answers holds one answer per configured model, in configuration order.
	Answers []ModelAnswer

	// NoContext is true when no chunk passed the relevance threshold.
	// No model is called in that case.
	NoContext bool
}

// DocumentIDs returns the distinct retrieved document IDs in relevance order.
func (r *QueryResult) DocumentIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, sc := range r.Chunks {
		if _, ok := seen[sc.Chunk.DocumentID]; ok {
			continue
		}
		seen[sc.Chunk.DocumentID] = struct{}{}
		ids = append(ids, sc.Chunk.DocumentID)
	}
	return ids
}

// QueryOptions tunes a single query.
type QueryOptions struct {
	// TopK is the maximum number of chunks to retrieve. Zero uses the default.
	TopK int

	// MinScore is the relevance threshold. Nil uses the configured one.
	MinScore *float64

	// Models restricts the fan-out to these model names. Empty uses all.
	Models []string
}

// IndexInfo binds a vector store to one embedding model.
type IndexInfo struct {
	// Model is the embedding model name.
	Model string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// VectorHit is a ranked vector store match.
type VectorHit struct {
	// Chunk is the stored chunk, without its embedding.
	Chunk Chunk

	// Score is the cosine similarity.
	Score float64
}

// IndexStats summarises the vector store contents.
type IndexStats struct {
	// Chunks is the number of stored chunks.
	Chunks int

	// Documents is the number of distinct documents with chunks.
	Documents int

	// ByType counts documents per document type.
	ByType map[DocumentType]int
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different lengths or with a zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
