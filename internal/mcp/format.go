package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docsearch/internal/ingest"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, results []*search.SearchResult) string {
	valid := filterValidResults(results)

	if len(valid) == 0 {
		return fmt.Sprintf("No documents found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d document", len(valid))
	if len(valid) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range valid {
		formatResult(&sb, i+1, r)
	}

	return sb.String()
}

// FormatAddResult summarizes an ingestion run as markdown.
func FormatAddResult(res *ingest.Result) string {
	if res == nil {
		return "No documents added."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Added %d, skipped %d, failed %d.\n", res.Added, len(res.Skipped), len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(&sb, "- `%s`: %v\n", f.Path, f.Err)
	}
	return sb.String()
}

func filterValidResults(results []*search.SearchResult) []*search.SearchResult {
	valid := make([]*search.SearchResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			valid = append(valid, r)
		}
	}
	return valid
}

func formatResult(sb *strings.Builder, num int, r *search.SearchResult) {
	fmt.Fprintf(sb, "### %d. %s (distance: %.4f)\n", num, r.Filename(), r.Distance)
	if r.Document.Label != "" {
		fmt.Fprintf(sb, "**Label:** %s\n", r.Document.Label)
	}
	if p := r.Document.Metadata[store.MetaFullPath]; p != "" && p != ingest.DirectInputPath {
		fmt.Fprintf(sb, "**Path:** `%s`\n", p)
	}
	sb.WriteString("\n")

	content := r.Snippet
	if content == "" {
		content = r.Document.Text
	}
	fmt.Fprintf(sb, "```\n%s\n```\n\n", content)
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, lo, hi int) int {
	if limit <= 0 {
		return defaultVal
	}
	return min(max(limit, lo), hi)
}

// ToSearchResultOutput converts a search result to the tool output format.
func ToSearchResultOutput(r *search.SearchResult) SearchResultOutput {
	if r == nil {
		return SearchResultOutput{}
	}

	out := SearchResultOutput{
		ID:       r.ID,
		Filename: r.Filename(),
		Label:    r.Document.Label,
		Distance: r.Distance,
		Score:    r.Score,
		Snippet:  r.Snippet,
	}
	if p := r.Document.Metadata[store.MetaFullPath]; p != ingest.DirectInputPath {
		out.FullPath = p
	}
	return out
}

// ToAddDocumentsOutput converts an ingestion result to the tool output format.
func ToAddDocumentsOutput(res *ingest.Result) AddDocumentsOutput {
	if res == nil {
		return AddDocumentsOutput{}
	}

	out := AddDocumentsOutput{
		Added:   res.Added,
		IDs:     res.IDs,
		Skipped: len(res.Skipped),
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, FailureOutput{Path: f.Path, Error: f.Err.Error()})
	}
	return out
}
