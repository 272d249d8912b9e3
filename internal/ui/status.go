package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"
)

// StatusInfo describes the document store for `docsearch info`.
type StatusInfo struct {
	DataDir    string `json:"data_dir"`
	Documents  int    `json:"documents"`
	Capacity   int    `json:"capacity"`
	Dimensions int    `json:"dimensions"`

	TotalCharacters       int            `json:"total_characters"`
	TextSizeMB            float64        `json:"text_size_mb"`
	Labels                map[string]int `json:"labels"`
	DocumentsWithMetadata int            `json:"documents_with_metadata"`

	// Persisted artifact sizes in bytes.
	IndexSize      int64     `json:"index_size"`
	EmbeddingsSize int64     `json:"embeddings_size"`
	DocumentsSize  int64     `json:"documents_size"`
	LastSaved      time.Time `json:"last_saved"`

	EmbedderModel  string `json:"embedder_model"`
	EmbedderStatus string `json:"embedder_status"` // "ready", "offline", "error"
}

// TotalSize is the sum of the artifact sizes.
func (s StatusInfo) TotalSize() int64 {
	return s.IndexSize + s.EmbeddingsSize + s.DocumentsSize
}

// StatusRenderer displays store status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render displays status info to the terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Document Store: "+info.DataDir))

	_, _ = fmt.Fprintf(r.out, "  Documents:  %d / %d capacity\n", info.Documents, info.Capacity)
	_, _ = fmt.Fprintf(r.out, "  Dimensions: %d\n", info.Dimensions)
	_, _ = fmt.Fprintf(r.out, "  Text:       %d characters (%.2f MB)\n", info.TotalCharacters, info.TextSizeMB)
	_, _ = fmt.Fprintf(r.out, "  Metadata:   %d documents\n", info.DocumentsWithMetadata)
	if !info.LastSaved.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last saved: %s\n", formatTime(info.LastSaved))
	}
	_, _ = fmt.Fprintln(r.out)

	if len(info.Labels) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Labels:")
		for _, label := range slices.Sorted(maps.Keys(info.Labels)) {
			_, _ = fmt.Fprintf(r.out, "    %-12s %d\n", label, info.Labels[label])
		}
		_, _ = fmt.Fprintln(r.out)
	}

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Index:      %s\n", FormatBytes(info.IndexSize))
	_, _ = fmt.Fprintf(r.out, "    Embeddings: %s\n", FormatBytes(info.EmbeddingsSize))
	_, _ = fmt.Fprintf(r.out, "    Documents:  %s\n", FormatBytes(info.DocumentsSize))
	_, _ = fmt.Fprintf(r.out, "    Total:      %s\n", FormatBytes(info.TotalSize()))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Model:  %s\n", info.EmbedderModel)
	_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus(info.EmbedderStatus))
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats t relative to now for recent times.
func formatTime(t time.Time) string {
	diff := time.Since(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to a human-readable size.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
