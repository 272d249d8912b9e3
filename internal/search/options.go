package search

import (
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// FilterFunc checks if a search result matches filter criteria.
type FilterFunc func(result *SearchResult) bool

// hasFilters reports whether opts can drop results.
func hasFilters(opts SearchOptions) bool {
	return opts.Label != "" || len(opts.Scopes) > 0 || opts.MinScore > 0
}

// ApplyFilters keeps results matching every active filter (AND logic).
func ApplyFilters(results []*SearchResult, opts SearchOptions) []*SearchResult {
	filters := buildFilters(opts)
	if len(filters) == 0 {
		return results
	}

	filtered := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		if matchesAllFilters(r, filters) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func buildFilters(opts SearchOptions) []FilterFunc {
	var filters []FilterFunc
	if opts.Label != "" {
		filters = append(filters, labelFilter(opts.Label))
	}
	if len(opts.Scopes) > 0 {
		filters = append(filters, scopeFilter(opts.Scopes))
	}
	if opts.MinScore > 0 {
		filters = append(filters, minScoreFilter(opts.MinScore))
	}
	return filters
}

func matchesAllFilters(result *SearchResult, filters []FilterFunc) bool {
	for _, f := range filters {
		if !f(result) {
			return false
		}
	}
	return true
}

// labelFilter matches labels case-insensitively.
func labelFilter(label string) FilterFunc {
	return func(r *SearchResult) bool {
		return strings.EqualFold(r.Document.Label, label)
	}
}

// scopeFilter matches when full_path is within ANY scope (OR logic).
func scopeFilter(scopes []string) FilterFunc {
	cleaned := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, filepath.Clean(s))
		}
	}
	return func(r *SearchResult) bool {
		path := r.Document.Metadata[store.MetaFullPath]
		if path == "" {
			return false
		}
		path = filepath.Clean(path)
		for _, scope := range cleaned {
			if path == scope || strings.HasPrefix(path, scope+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
}

func minScoreFilter(min float64) FilterFunc {
	return func(r *SearchResult) bool {
		return r.Score >= min
	}
}
