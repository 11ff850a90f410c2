package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestLevels_SilentWhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("debug")
	Info("info")
	Warn("warn")
	Section("section")

	assert.Empty(t, buf.String())
}

func TestInfoAndWarn_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Info("ingested %d documents", 3)
	Warn("retrying %s", "embed")

	assert.Equal(t, "[INFO] ingested 3 documents\n[WARN] retrying embed\n", buf.String())
}

func TestSection_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Section("Ingestion")

	assert.Equal(t, "\n=== Ingestion ===\n", buf.String())
}

func TestError_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Error("document %s failed", "doc-2")

	assert.Equal(t, "[ERROR] document doc-2 failed\n", buf.String())
}

func TestKV(t *testing.T) {
	tests := []struct {
		name  string
		pairs []any
		want  string
	}{
		{"empty", nil, ""},
		{"single", []any{"doc", "a.pdf"}, "doc=a.pdf"},
		{"multiple", []any{"doc", "a.pdf", "chunks", 12}, "doc=a.pdf chunks=12"},
		{"quoted", []any{"err", "rate limited"}, `err="rate limited"`},
		{"dangling", []any{"doc"}, "doc=?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KV(tt.pairs...))
		})
	}
}
