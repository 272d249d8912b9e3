package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

const testDims = 32

var errPoison = errors.New("poisoned text")

// flakyEmbedder wraps the static embedder. The batch call can be made to
// fail, and texts containing "poison" always fail.
type flakyEmbedder struct {
	*embed.StaticEmbedder
	failBatch  bool
	batchCalls int
	embedCalls int
}

func newFlakyEmbedder() *flakyEmbedder {
	return &flakyEmbedder{StaticEmbedder: embed.NewStaticEmbedder(testDims)}
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if strings.Contains(text, "poison") {
		return nil, errPoison
	}
	return f.StaticEmbedder.Embed(ctx, text)
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.failBatch {
		return nil, errors.New("batch unavailable")
	}
	for _, t := range texts {
		if strings.Contains(t, "poison") {
			return nil, errPoison
		}
	}
	return f.StaticEmbedder.EmbedBatch(ctx, texts)
}

// failingStore accepts reads but rejects writes.
type failingStore struct{}

func (failingStore) AddDocuments(context.Context, []store.Document, [][]float32) ([]uint64, error) {
	return nil, errors.New("disk full")
}
func (failingStore) Documents() []store.Document { return nil }
func (failingStore) Count() int                  { return 0 }

// recordingRenderer captures renderer calls.
type recordingRenderer struct {
	mu       sync.Mutex
	progress []ui.ProgressEvent
	errors   []ui.ErrorEvent
	stats    *ui.CompletionStats
}

func (r *recordingRenderer) Start(context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                 { return nil }

func (r *recordingRenderer) UpdateProgress(e ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, e)
}

func (r *recordingRenderer) AddError(e ui.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)
}

func (r *recordingRenderer) Complete(s ui.CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = &s
}

func (r *recordingRenderer) stages() map[ui.Stage]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[ui.Stage]bool)
	for _, e := range r.progress {
		seen[e.Stage] = true
	}
	return seen
}

func newEngine(t *testing.T) *store.VectorSearchEngine {
	t.Helper()
	e := store.NewVectorSearchEngine(store.DefaultEngineConfig(""))
	require.NoError(t, e.Initialize(testDims, 16))
	return e
}

func newIngester(t *testing.T, s Store, emb embed.Embedder) *Ingester {
	t.Helper()
	in, err := New(Dependencies{Store: s, Embedder: emb}, Config{Workers: 2})
	require.NoError(t, err)
	return in
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
