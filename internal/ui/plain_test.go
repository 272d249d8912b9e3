package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress(t *testing.T) {
	tests := []struct {
		name  string
		event ProgressEvent
		want  string
	}{
		{
			name:  "counted with file",
			event: ProgressEvent{Stage: StageExtracting, Current: 2, Total: 5, CurrentFile: "a.pdf"},
			want:  "[EXTRACT] 2/5 - a.pdf\n",
		},
		{
			name:  "message wins over file",
			event: ProgressEvent{Stage: StageEmbedding, Current: 1, Total: 1, CurrentFile: "a.pdf", Message: "batch"},
			want:  "[EMBED] 1/1 - batch\n",
		},
		{
			name:  "uncounted message",
			event: ProgressEvent{Stage: StageScanning, Message: "listing /docs"},
			want:  "[SCAN] listing /docs\n",
		},
		{
			name:  "nothing to say",
			event: ProgressEvent{Stage: StageIndexing},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewPlainRenderer(NewConfig(buf))

			r.UpdateProgress(tt.event)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_AddError(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: adding a warning and an error
	r.AddError(ErrorEvent{File: "bad.docx", Err: errors.New("corrupt"), IsWarn: true})
	r.AddError(ErrorEvent{Err: errors.New("disk full")})

	// Then: both are printed with their prefix and retained
	assert.Equal(t, "WARN: bad.docx: corrupt\nERROR: disk full\n", buf.String())
	assert.Len(t, r.Errors(), 2)
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))
	require.NoError(t, r.Start(context.Background()))

	// When: completing a run
	r.Complete(CompletionStats{
		Added:     3,
		Skipped:   1,
		Failed:    1,
		Documents: 10,
		Duration:  1500 * time.Millisecond,
		Warnings:  1,
		Stages:    StageTimings{Extract: time.Second, Embed: 2 * time.Second},
		Embedder:  EmbedderInfo{Backend: "static", Model: "static-384", Dimensions: 384},
	})
	require.NoError(t, r.Stop())

	// Then: the summary lines are present without ANSI codes
	out := buf.String()
	assert.Contains(t, out, "Complete: 3 added, 1 skipped, 1 failed in 1.5s (0 errors, 1 warnings)")
	assert.Contains(t, out, "Embed:   2s (3 documents @ 1.5/sec)")
	assert.Contains(t, out, "Embedder: static (static-384, 384 dims)")
	assert.Contains(t, out, "Total documents: 10")
	assert.NotContains(t, out, "\x1b[")
}

func TestNopRenderer(t *testing.T) {
	var r Renderer = NopRenderer{}
	assert.NoError(t, r.Start(context.Background()))
	r.UpdateProgress(ProgressEvent{})
	r.AddError(ErrorEvent{})
	r.Complete(CompletionStats{})
	assert.NoError(t, r.Stop())
}
