package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestExtract(t *testing.T) {
	content := "# Notes d'audience\n\n**M. Durand** conteste le [virement](pv_2.pdf).\f## Suite\n\n- Relance du greffe"
	doc := &domain.SourceDocument{
		SourceEntry: domain.SourceEntry{ID: "notes.md", MimeType: "text/markdown"},
		Content:     []byte(content),
	}

	pages, err := New().Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Notes d'audience\n\nM. Durand conteste le virement.",
		"Suite\n\nRelance du greffe",
	}, pages)
}

func TestExtract_NilDocument(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrOCRFailure)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "headings removed",
			input:    "# Title\n## Subtitle\n### Third",
			expected: "Title\nSubtitle\nThird",
		},
		{
			name:     "bold removed",
			input:    "This is **bold** text",
			expected: "This is bold text",
		},
		{
			name:     "underscores in names kept",
			input:    "See pv_audition_2.pdf",
			expected: "See pv_audition_2.pdf",
		},
		{
			name:     "links converted",
			input:    "Click [here](https://example.com)",
			expected: "Click here",
		},
		{
			name:     "images keep alt text",
			input:    "See ![signature](image.png) here",
			expected: "See signature here",
		},
		{
			name:     "code fences removed",
			input:    "Before\n```\nquoted record\n```\nAfter",
			expected: "Before\n\nquoted record\n\nAfter",
		},
		{
			name:     "inline code kept",
			input:    "Article `L. 121-1` du code",
			expected: "Article L. 121-1 du code",
		},
		{
			name:     "blockquotes cleaned",
			input:    "> This is a quote",
			expected: "This is a quote",
		},
		{
			name:     "list markers removed",
			input:    "- Item 1\n- Item 2",
			expected: "Item 1\nItem 2",
		},
		{
			name:     "numbered list markers removed",
			input:    "1. First\n2. Second",
			expected: "First\nSecond",
		},
		{
			name:     "horizontal rules removed",
			input:    "Above\n\n---\n\nBelow",
			expected: "Above\n\nBelow",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripMarkdown(tc.input))
		})
	}
}
