// Package search answers natural-language queries against the document
// index: it embeds the query, runs the ANN search, applies filters and
// decorates each hit with a score and a snippet.
package search

import (
	"context"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// SearchEngine answers queries against the document index.
type SearchEngine interface {
	// Search executes a query and returns results closest first.
	Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error)

	// Stats returns index statistics.
	Stats() *EngineStats
}

// Index is the read side of store.VectorSearchEngine used by search.
type Index interface {
	Search(query []float32, k int) ([]store.SearchResult, error)
	Documents() []store.Document
	Count() int
	Capacity() int
	Dimensions() int
}

var _ Index = (*store.VectorSearchEngine)(nil)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the number of results (k). 0 selects the configured default.
	Limit int

	// Label keeps only documents with this label.
	Label string

	// Scopes keeps only documents whose full_path starts with one of these
	// prefixes. Empty means no scope filtering.
	Scopes []string

	// MinScore drops results scoring below it.
	MinScore float64

	// SnippetChars overrides the configured snippet length.
	SnippetChars int
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID       uint64
	Distance float32

	// Score is 1 - Distance; higher is more relevant.
	Score float64

	// Snippet is a window of the document text around the first query term.
	Snippet string

	// Highlights are rune ranges in Snippet where query terms occur.
	Highlights []Range

	Document store.Document
}

// Filename returns the document's filename metadata, or a stable placeholder.
func (r *SearchResult) Filename() string {
	return documentFilename(r.Document)
}

// Range is a half-open rune range.
type Range struct {
	Start int
	End   int
}

// EngineStats describes the index behind the engine.
type EngineStats struct {
	Documents  int
	Capacity   int
	Dimensions int
	Model      string
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// DefaultLimit is the default number of results (default: 5).
	DefaultLimit int

	// MaxLimit caps a single request. 0 (the default) means no cap, so a
	// request for k results gets min(k, count).
	MaxLimit int

	// SnippetChars is the default snippet length (default: 300).
	SnippetChars int

	// OverFetch multiplies k when filters are active so enough hits
	// survive filtering (default: 4).
	OverFetch int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit: 5,
		SnippetChars: 300,
		OverFetch:    4,
	}
}
