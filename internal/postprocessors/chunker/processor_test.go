package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func process(t *testing.T, p *Processor, text string) []domain.Chunk {
	t.Helper()
	doc := &domain.NormalizedText{DocumentID: "doc-1", Text: text}
	chunks, err := p.Process(context.Background(), doc, domain.SourceEntry{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return chunks
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
		if p.tolerance != DefaultTolerance {
			t.Errorf("expected tolerance %d, got %d", DefaultTolerance, p.tolerance)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("tolerance exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithTolerance(300))
		if p.tolerance >= p.chunkSize {
			t.Error("tolerance should be reduced when it exceeds chunk size")
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1), WithTolerance(-5))
		if p.chunkSize != DefaultChunkSize || p.overlap != DefaultChunkOverlap || p.tolerance != DefaultTolerance {
			t.Errorf("expected defaults, got %d/%d/%d", p.chunkSize, p.overlap, p.tolerance)
		}
	})
}

func TestProcess_Empty(t *testing.T) {
	if chunks := process(t, New(), ""); chunks != nil {
		t.Errorf("expected nil chunks, got %d", len(chunks))
	}
}

func TestProcess_ShortDocumentKeptWhole(t *testing.T) {
	text := "[[page 1]]\n\nbref"
	chunks := process(t, New(), text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	c := chunks[0]
	if c.Content != text {
		t.Errorf("unexpected content %q", c.Content)
	}
	if want := domain.ChunkID("doc-1", 0, domain.HashContent(text)); c.ID != want {
		t.Errorf("expected content-addressed ID %s, got %s", want, c.ID)
	}
	if c.Page != 1 || c.Index != 0 || c.DocumentID != "doc-1" {
		t.Errorf("unexpected chunk fields: %+v", c)
	}
	if c.Metadata["total_chunks"] != "1" {
		t.Errorf("expected total_chunks 1, got %q", c.Metadata["total_chunks"])
	}
}

func TestProcess_PrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("x", 80)
	second := strings.Repeat("y", 80)
	p := New(WithChunkSize(100), WithOverlap(0), WithTolerance(40))

	chunks := process(t, p, first+"\n\n"+second)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != first {
		t.Errorf("first chunk should end at the paragraph break, got %q", chunks[0].Content)
	}
	if chunks[1].Content != second {
		t.Errorf("second chunk should hold the next paragraph, got %q", chunks[1].Content)
	}
}

func TestProcess_OverlapStartsOnWord(t *testing.T) {
	var words []string
	for i := 0; i < 60; i++ {
		words = append(words, fmt.Sprintf("w%03d", i))
	}
	p := New(WithChunkSize(100), WithOverlap(20), WithTolerance(0))

	chunks := process(t, p, strings.Join(words, " "))
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		head := strings.Fields(chunks[i].Content)[0]
		if len(head) != 4 || head[0] != 'w' {
			t.Errorf("chunk %d starts mid-word: %q", i, head)
		}
		if !strings.Contains(chunks[i-1].Content, head) {
			t.Errorf("chunk %d should overlap the previous one at %q", i, head)
		}
	}
}

func TestProcess_DropsShortTrailingChunk(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(0), WithTolerance(0))

	chunks := process(t, p, strings.Repeat("x", 100)+" tail")
	if len(chunks) != 1 {
		t.Fatalf("expected trailing noise to be dropped, got %d chunks", len(chunks))
	}
	if chunks[0].Metadata["total_chunks"] != "1" {
		t.Errorf("expected total_chunks 1, got %q", chunks[0].Metadata["total_chunks"])
	}
}

func TestProcess_TracksPages(t *testing.T) {
	text := domain.PageMarker(1) + "\n\n" + strings.Repeat("x", 300) +
		"\n\n" + domain.PageMarker(2) + "\n\n" + strings.Repeat("y", 300)
	p := New(WithChunkSize(200), WithOverlap(0), WithTolerance(50))

	chunks := process(t, p, text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if chunks[0].Page != 1 {
		t.Errorf("expected first chunk on page 1, got %d", chunks[0].Page)
	}
	if last := chunks[len(chunks)-1]; last.Page != 2 {
		t.Errorf("expected last chunk on page 2, got %d", last.Page)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	text := strings.Repeat("Le témoin déclare avoir vu le véhicule. ", 80)
	a := process(t, New(), text)
	b := process(t, New(), text)

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("chunk %d ID changed between runs", i)
		}
	}
}

func TestProcess_UnicodeSafe(t *testing.T) {
	text := strings.Repeat("é", 250)
	chunks := process(t, New(WithChunkSize(100), WithOverlap(10), WithTolerance(0)), text)
	for i, c := range chunks {
		if strings.ContainsRune(c.Content, '�') {
			t.Errorf("chunk %d split a multi-byte rune", i)
		}
	}
}
