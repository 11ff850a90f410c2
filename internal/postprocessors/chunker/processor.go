// Package chunker provides a paragraph-aware overlapping text chunker.
package chunker

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// (a fifth of the default size).
const DefaultChunkOverlap = 200

// DefaultTolerance is how far before the size limit a paragraph break
// may end a chunk.
const DefaultTolerance = 200

// MinChunkLength drops noise chunks shorter than this many characters,
// unless the document yields a single chunk.
const MinChunkLength = 50

// Processor splits normalized text into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	tolerance int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithTolerance sets how far back from the size limit a paragraph
// break is searched for.
func WithTolerance(tolerance int) Option {
	return func(p *Processor) {
		if tolerance >= 0 {
			p.tolerance = tolerance
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		tolerance: DefaultTolerance,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap and tolerance leave room for progress
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	if p.tolerance >= p.chunkSize {
		p.tolerance = p.chunkSize / 2
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the normalized text into chunks.
// Input chunks are ignored; this processor creates new chunks.
//
// A window ends at the last paragraph break within the tolerance before
// the size limit, or at the limit itself when there is none. The next
// window starts overlap characters earlier, moved forward to a word start.
// Chunk IDs are content-addressed through domain.ChunkID.
func (p *Processor) Process(
	_ context.Context,
	doc *domain.NormalizedText,
	_ domain.SourceEntry,
	_ []domain.Chunk,
) ([]domain.Chunk, error) {
	spans := p.split(doc.Text)
	if len(spans) == 0 {
		return nil, nil
	}

	if len(spans) > 1 {
		kept := spans[:0]
		for _, s := range spans {
			if len([]rune(s.text)) >= MinChunkLength {
				kept = append(kept, s)
			}
		}
		spans = kept
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		hash := domain.HashContent(s.text)
		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(doc.DocumentID, i, hash),
			DocumentID:  doc.DocumentID,
			Index:       i,
			Content:     s.text,
			ContentHash: hash,
			Page:        domain.PageAt(doc.Text, s.byteOffset),
			Metadata: map[string]string{
				"total_chunks": strconv.Itoa(len(spans)),
			},
		})
	}
	return chunks, nil
}

// span is one window of text and the byte offset where it starts.
type span struct {
	text       string
	byteOffset int
}

// split computes the windows of text.
func (p *Processor) split(text string) []span {
	runes := []rune(text)
	n := len(runes)

	// offsets[i] is the byte offset of runes[i].
	offsets := make([]int, n+1)
	for i, r := range runes {
		offsets[i+1] = offsets[i] + len(string(r))
	}

	var spans []span
	start := 0
	for start < n {
		for start < n && unicode.IsSpace(runes[start]) {
			start++
		}
		if start >= n {
			break
		}

		end := start + p.chunkSize
		if end >= n {
			end = n
		} else if cut := paragraphBreak(runes, max(start+1, end-p.tolerance), end); cut > 0 {
			end = cut
		}

		if content := strings.TrimSpace(string(runes[start:end])); content != "" {
			spans = append(spans, span{text: content, byteOffset: offsets[start]})
		}
		if end >= n {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = start + 1
		}
		for next < end && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		start = next
	}
	return spans
}

// paragraphBreak returns the index of the last blank-line break in
// runes[lo:hi], or -1. The returned index is where the chunk ends.
func paragraphBreak(runes []rune, lo, hi int) int {
	for i := hi - 1; i > lo; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i - 1
		}
	}
	return -1
}
