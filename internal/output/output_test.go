package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"status with icon", func(w *Writer) { w.Status("→", "Loading index") }, "→ Loading index\n"},
		{"status without icon", func(w *Writer) { w.Status("", "detail") }, "  detail\n"},
		{"success", func(w *Writer) { w.Successf("Added %d documents", 3) }, "✓ Added 3 documents\n"},
		{"warning", func(w *Writer) { w.Warning("Ollama not reachable") }, "⚠ Ollama not reachable\n"},
		{"error", func(w *Writer) { w.Errorf("query failed: %s", "boom") }, "✗ query failed: boom\n"},
		{"info", func(w *Writer) { w.Infof("%d files", 2) }, "  2 files\n"},
		{"header", func(w *Writer) { w.Header("Document Store") }, "Document Store\n"},
		{"prompt", func(w *Writer) { w.Prompt("Enter query: ") }, "Enter query: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer on a buffer, which is not a terminal
			buf := &bytes.Buffer{}
			w := New(buf)

			// When: writing
			tt.write(w)

			// Then: plain text without escape codes
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Field_Aligns(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Field("Documents", 12)
	w.Field("Dimensions", 384)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"  Documents:     12",
		"  Dimensions:    384",
	}, lines)
}

func TestWriter_Code_IndentsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Code("line one\nline two")

	assert.Equal(t, "\n  line one\n  line two\n\n", buf.String())
}

func TestWriter_WithColor_KeepsText(t *testing.T) {
	// Given: color forced on
	buf := &bytes.Buffer{}
	w := New(buf, WithColor(true))

	// When: printing a success message
	w.Success("done")

	// Then: the message text is present regardless of styling
	assert.Contains(t, buf.String(), "done")
	assert.Contains(t, buf.String(), "✓")
}

func TestWriter_Out(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.Same(t, buf, New(buf).Out())
}
