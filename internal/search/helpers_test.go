package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/telemetry"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text to a one-hot vector on the first known keyword.
type keywordEmbedder struct {
	keywords []string
	dims     int
	err      error
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords, dims: len(keywords) + 1}
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	vec := make([]float32, k.dims)
	lower := strings.ToLower(text)
	for i, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
			vec[k.dims-1] = 0.1 * float32(i+1)
			return vec, nil
		}
	}
	vec[k.dims-1] = 1
	return vec, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := k.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (k *keywordEmbedder) Dimensions() int                  { return k.dims }
func (k *keywordEmbedder) ModelName() string                { return "keyword-test" }
func (k *keywordEmbedder) Available(_ context.Context) bool { return true }
func (k *keywordEmbedder) Close() error                     { return nil }

// recordingRecorder captures telemetry events.
type recordingRecorder struct {
	mu     sync.Mutex
	events []telemetry.QueryEvent
	err    error
}

func (r *recordingRecorder) Record(_ context.Context, ev telemetry.QueryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

var errRecorder = errors.New("telemetry down")

// newTestIndex builds an in-memory index holding docs, embedded by emb.
func newTestIndex(t *testing.T, emb *keywordEmbedder, docs []store.Document) *store.VectorSearchEngine {
	t.Helper()
	ctx := context.Background()

	idx := store.NewVectorSearchEngine(store.DefaultEngineConfig(""))
	require.NoError(t, idx.Initialize(emb.Dimensions(), 16))

	if len(docs) == 0 {
		return idx
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vecs, err := emb.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	_, err = idx.AddDocuments(ctx, docs, vecs)
	require.NoError(t, err)
	return idx
}
