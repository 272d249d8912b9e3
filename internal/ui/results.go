package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/docsearch/internal/search"
)

// ResultRenderer prints ranked search results.
type ResultRenderer struct {
	out    io.Writer
	styles Styles
}

// NewResultRenderer creates a result renderer.
func NewResultRenderer(out io.Writer, noColor bool) *ResultRenderer {
	return &ResultRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints one block per result: rank, distance, score, filename and a
// snippet with query terms highlighted.
func (r *ResultRenderer) Render(query string, results []search.SearchResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(r.out, "No documents found for %q\n", query)
		return err
	}

	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(fmt.Sprintf("Results for %q", query)))
	for i := range results {
		res := &results[i]
		_, _ = fmt.Fprintf(r.out, "%s %s  %s %s\n",
			r.styles.Rank.Render(fmt.Sprintf("%d.", i+1)),
			r.styles.Filename.Render(res.Filename()),
			r.styles.Label.Render(fmt.Sprintf("distance %.4f", res.Distance)),
			r.styles.Score.Render(fmt.Sprintf("score %.4f", res.Score)),
		)
		if res.Document.Label != "" {
			_, _ = fmt.Fprintf(r.out, "   %s\n", r.styles.Dim.Render("["+res.Document.Label+"]"))
		}
		_, _ = fmt.Fprintf(r.out, "   %s\n\n", r.highlight(res.Snippet, res.Highlights))
	}
	return nil
}

// RenderRaw prints distance and full document text, one result per line
// group. The interactive query loop uses it.
func (r *ResultRenderer) RenderRaw(results []search.SearchResult) error {
	for _, res := range results {
		if _, err := fmt.Fprintf(r.out, "Distance: %.4f\n%s\n\n", res.Distance, res.Document.Text); err != nil {
			return err
		}
	}
	return nil
}

// jsonResult is the wire shape of one result.
type jsonResult struct {
	ID       uint64            `json:"id"`
	Distance float32           `json:"distance"`
	Score    float64           `json:"score"`
	Filename string            `json:"filename"`
	Label    string            `json:"label"`
	Snippet  string            `json:"snippet"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RenderJSON writes results as an indented JSON document.
func (r *ResultRenderer) RenderJSON(query string, results []search.SearchResult) error {
	out := struct {
		Query   string       `json:"query"`
		Count   int          `json:"count"`
		Results []jsonResult `json:"results"`
	}{Query: query, Count: len(results), Results: make([]jsonResult, 0, len(results))}

	for i := range results {
		res := &results[i]
		out.Results = append(out.Results, jsonResult{
			ID:       res.ID,
			Distance: res.Distance,
			Score:    res.Score,
			Filename: res.Filename(),
			Label:    res.Document.Label,
			Snippet:  res.Snippet,
			Metadata: res.Document.Metadata,
		})
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// highlight styles the rune ranges of snippet. Ranges are sorted and
// non-overlapping.
func (r *ResultRenderer) highlight(snippet string, ranges []search.Range) string {
	if len(ranges) == 0 {
		return snippet
	}

	runes := []rune(snippet)
	var b strings.Builder
	pos := 0
	for _, h := range ranges {
		if h.Start < pos || h.End > len(runes) || h.Start >= h.End {
			continue
		}
		b.WriteString(string(runes[pos:h.Start]))
		b.WriteString(r.styles.Highlight.Render(string(runes[h.Start:h.End])))
		pos = h.End
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}
