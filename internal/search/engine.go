package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/docsearch/internal/embed"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/telemetry"
)

// Engine embeds queries and searches the vector index.
type Engine struct {
	index    Index
	embedder embed.Embedder
	config   EngineConfig
	recorder telemetry.Recorder
	logger   *slog.Logger
}

var _ SearchEngine = (*Engine)(nil)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithRecorder records every query. Recording failures are logged only.
func WithRecorder(r telemetry.Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithLogger sets the engine logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a search engine over index using embedder for queries.
func NewEngine(index Index, embedder embed.Embedder, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: index is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}

	defaults := DefaultConfig()
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaults.DefaultLimit
	}
	if config.SnippetChars <= 0 {
		config.SnippetChars = defaults.SnippetChars
	}
	if config.OverFetch <= 0 {
		config.OverFetch = defaults.OverFetch
	}

	e := &Engine{
		index:    index,
		embedder: embedder,
		config:   config,
		recorder: telemetry.NopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search embeds query and returns up to opts.Limit results closest first.
// A blank query, or one whose embedding has no direction, fails with
// ERR_404_QUERY_EMPTY. An empty index returns no
// results and no error.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, docerrors.New(docerrors.ErrCodeQueryEmpty, "query is empty", nil)
	}

	opts = e.applyDefaults(opts)

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if docerrors.GetCode(err) != "" {
			return nil, err
		}
		return nil, docerrors.New(docerrors.ErrCodeEmbeddingFailed, "failed to embed query", err)
	}

	if dims := e.index.Dimensions(); dims != 0 && len(vec) != dims {
		return nil, docerrors.DimensionMismatchError(dims, len(vec)).
			WithSuggestion("The index was built with a different embedding model; re-index or switch back to " + e.embedder.ModelName())
	}

	if err := store.ValidateVector(vec); err != nil {
		return nil, docerrors.New(docerrors.ErrCodeQueryEmpty, "query has no searchable terms", err).
			WithSuggestion("include at least one word or number in the query")
	}

	fetch := opts.Limit
	if hasFilters(opts) {
		fetch = opts.Limit * e.config.OverFetch
	}

	hits, err := e.index.Search(vec, fetch)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, h := range hits {
		snippet := Snippet(h.Document.Text, query, opts.SnippetChars)
		results = append(results, &SearchResult{
			ID:         h.ID,
			Distance:   h.Distance,
			Score:      1 - float64(h.Distance),
			Snippet:    snippet,
			Highlights: calculateHighlights(snippet, query),
			Document:   h.Document,
		})
	}

	results = ApplyFilters(results, opts)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	latency := time.Since(start)
	e.logger.Debug("search_completed",
		slog.String("query", query),
		slog.Int("k", opts.Limit),
		slog.Int("results", len(results)),
		slog.Duration("latency", latency))

	e.record(ctx, telemetry.QueryEvent{
		Query:       query,
		K:           opts.Limit,
		ResultCount: len(results),
		Latency:     latency,
		Timestamp:   start,
	})
	return results, nil
}

func (e *Engine) record(ctx context.Context, ev telemetry.QueryEvent) {
	if err := e.recorder.Record(ctx, ev); err != nil {
		e.logger.Warn("telemetry_record_failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if e.config.MaxLimit > 0 && opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	if opts.SnippetChars <= 0 {
		opts.SnippetChars = e.config.SnippetChars
	}
	return opts
}

// Stats returns index statistics.
func (e *Engine) Stats() *EngineStats {
	return &EngineStats{
		Documents:  e.index.Count(),
		Capacity:   e.index.Capacity(),
		Dimensions: e.index.Dimensions(),
		Model:      e.embedder.ModelName(),
	}
}

// StorageInfo summarizes the documents behind the index.
func (e *Engine) StorageInfo() StorageInfo {
	return ComputeStorageInfo(e.index.Documents())
}
