package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"
)

// HashPrefix prefixes every content hash produced by juris.
const HashPrefix = "sha256:"

// SourceEntry describes a document as listed by a source connector.
type SourceEntry struct {
	// ID is stable across syncs and unique within the source.
	ID string

	// Name is the display name, usually the file name.
	Name string

	// Path is the location within the source (folder path or relative path).
	Path string

	// MimeType is the content type reported by the source.
	MimeType string

	// ModifiedAt is the remote modification timestamp.
	ModifiedAt time.Time

	// ContentHash changes if and only if the content changes.
	ContentHash string

	// Size is the payload size in bytes, when known.
	Size int64
}

// SourceDocument is a fetched document. Content is transient and is
// never persisted.
type SourceDocument struct {
	SourceEntry

	// Content is the raw document payload.
	Content []byte
}

// NormalizedText is the canonical text of a document.
// It is created by the normalizer and immutable once written.
type NormalizedText struct {
	// DocumentID identifies the source document.
	DocumentID string

	// Pages holds the cleaned text of each physical page, in order.
	Pages []string

	// Text is the concatenation of all pages with page markers.
	Text string

	// ContentHash is the hash of Text. It is distinct from the source hash
	// because OCR output varies between runs.
	ContentHash string
}

// pageMarkerRe matches a page marker line in normalized text.
var pageMarkerRe = regexp.MustCompile(`(?m)^\[\[page (\d+)\]\]$`)

// PageMarker returns the marker line that opens page n (1-based).
func PageMarker(n int) string {
	return "[[page " + strconv.Itoa(n) + "]]"
}

// IsPageMarker reports whether line is a page marker.
func IsPageMarker(line string) bool {
	return pageMarkerRe.MatchString(line)
}

// PageAt returns the page containing byte offset off of normalized text.
// Offsets before the first marker belong to page 1.
func PageAt(text string, off int) int {
	page := 1
	for _, loc := range pageMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > off {
			break
		}
		if n, err := strconv.Atoi(text[loc[2]:loc[3]]); err == nil {
			page = n
		}
	}
	return page
}

// Chunk is a bounded span of normalized text paired with its embedding.
type Chunk struct {
	// ID is content-addressed, see ChunkID.
	ID string

	// DocumentID links to the source document.
	DocumentID string

	// Index is the ordinal position within the document.
	Index int

	// Content is the chunk text.
	Content string

	// ContentHash is the hash of Content.
	ContentHash string

	// Page is the physical page the chunk starts on (1-based).
	Page int

	// Embedding is the vector representation. Its length is fixed by
	// the embedding provider.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]string
}

// HashContent returns the content hash of s.
func HashContent(s string) string {
	sum := sha256.Sum256([]byte(s))
	return HashPrefix + hex.EncodeToString(sum[:])
}

// HashBytes returns the content hash of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// ChunkID derives the stable identifier of a chunk from its document,
// index and content hash. Identical content at the same position always
// yields the same identifier, so re-embedding upserts in place.
func ChunkID(documentID string, index int, contentHash string) string {
	h := sha256.New()
	h.Write([]byte(documentID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(index)))
	h.Write([]byte{0})
	h.Write([]byte(contentHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Watermark is the last successfully processed state of a document.
type Watermark struct {
	// DocumentID identifies the source document.
	DocumentID string

	// SourceHash is the source content hash at the last success.
	SourceHash string

	// NormalizedHash is the normalized text hash at the last success.
	NormalizedHash string

	// ChunkCount is the number of chunks persisted at the last success.
	ChunkCount int

	// LastSuccess is when the document last finished ingestion.
	LastSuccess time.Time
}
