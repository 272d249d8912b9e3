package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/docsearch/internal/ingest"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

func fileResult(id uint64, name, path string, distance float32) *search.SearchResult {
	return &search.SearchResult{
		ID:       id,
		Distance: distance,
		Score:    1 - float64(distance),
		Snippet:  "snippet for " + name,
		Document: store.Document{
			ID:    id,
			Text:  "full text of " + name,
			Label: "reports",
			Metadata: map[string]string{
				store.MetaFilename: name,
				store.MetaFullPath: path,
			},
		},
	}
}

func TestFormatSearchResults(t *testing.T) {
	tests := []struct {
		name     string
		results  []*search.SearchResult
		contains []string
		excludes []string
	}{
		{
			name:     "empty",
			results:  nil,
			contains: []string{`No documents found for "budget"`},
		},
		{
			name:     "nil entries only",
			results:  []*search.SearchResult{nil},
			contains: []string{`No documents found for "budget"`},
		},
		{
			name:    "single",
			results: []*search.SearchResult{fileResult(3, "q3.pdf", "/docs/q3.pdf", 0.125)},
			contains: []string{
				`## Search Results for "budget"`,
				"Found 1 document\n",
				"### 1. q3.pdf (distance: 0.1250)",
				"**Label:** reports",
				"**Path:** `/docs/q3.pdf`",
				"snippet for q3.pdf",
			},
		},
		{
			name: "plural and direct input",
			results: []*search.SearchResult{
				fileResult(1, "a.txt", "/docs/a.txt", 0.1),
				fileResult(2, "Pasted note", ingest.DirectInputPath, 0.2),
			},
			contains: []string{"Found 2 documents", "### 2. Pasted note"},
			excludes: []string{"`direct_input`"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatSearchResults("budget", tt.results)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestFormatSearchResults_FallsBackToText(t *testing.T) {
	r := fileResult(1, "a.txt", "/docs/a.txt", 0.1)
	r.Snippet = ""

	out := FormatSearchResults("a", []*search.SearchResult{r})

	assert.Contains(t, out, "full text of a.txt")
}

func TestFormatAddResult(t *testing.T) {
	res := &ingest.Result{
		Added:    2,
		Skipped:  []string{"/docs/old.txt"},
		Failures: []ingest.Failure{{Path: "/docs/bad.exe", Err: errors.New("unsupported file type")}},
	}

	out := FormatAddResult(res)

	assert.Contains(t, out, "Added 2, skipped 1, failed 1.")
	assert.Contains(t, out, "- `/docs/bad.exe`: unsupported file type")
	assert.Equal(t, "No documents added.", FormatAddResult(nil))
}

func TestToSearchResultOutput(t *testing.T) {
	out := ToSearchResultOutput(fileResult(7, "q3.pdf", "/docs/q3.pdf", 0.25))

	assert.Equal(t, SearchResultOutput{
		ID:       7,
		Filename: "q3.pdf",
		FullPath: "/docs/q3.pdf",
		Label:    "reports",
		Distance: 0.25,
		Score:    0.75,
		Snippet:  "snippet for q3.pdf",
	}, out)

	assert.Equal(t, SearchResultOutput{}, ToSearchResultOutput(nil))
}

func TestToAddDocumentsOutput(t *testing.T) {
	res := &ingest.Result{
		Added:    1,
		IDs:      []uint64{4},
		Skipped:  []string{"a", "b"},
		Failures: []ingest.Failure{{Path: "c", Err: errors.New("boom")}},
	}

	out := ToAddDocumentsOutput(res)

	assert.Equal(t, 1, out.Added)
	assert.Equal(t, []uint64{4}, out.IDs)
	assert.Equal(t, 2, out.Skipped)
	assert.Equal(t, []FailureOutput{{Path: "c", Error: "boom"}}, out.Failures)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, 5},
		{-3, 5},
		{1, 1},
		{50, 50},
		{500, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.limit, 5, 1, 100), "limit %d", tt.limit)
	}
}
