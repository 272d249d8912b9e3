package cmd

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAddTextThenSearch(t *testing.T) {
	dir := newTestEnv(t)

	// Given: a document added from the command line
	out, err := runCLI(t, dir, "", "add-text", "Invoices are due within thirty days.",
		"--label", "finance", "--title", "Payment terms")
	require.NoError(t, err)
	assert.Contains(t, out, "Added document 0")

	// When: searching in text format
	out, err = runCLI(t, dir, "", "search", "when", "are", "invoices", "due")

	// Then: the document is listed with its title and label
	require.NoError(t, err)
	assert.Contains(t, out, "Payment terms")
	assert.Contains(t, out, "[finance]")
	assert.Contains(t, out, "distance")
}

func TestSearchCmd_JSON(t *testing.T) {
	dir := newTestEnv(t)
	_, err := runCLI(t, dir, "", "add-text", "First note about budgets.")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "", "add-text", "Second note about holidays.")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "", "search", "budgets", "-k", "1", "--format", "json")
	require.NoError(t, err)

	var decoded struct {
		Query   string `json:"query"`
		Count   int    `json:"count"`
		Results []struct {
			Filename string `json:"filename"`
			Label    string `json:"label"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "budgets", decoded.Query)
	assert.Equal(t, 1, decoded.Count)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "general", decoded.Results[0].Label)
}

func TestSearchCmd_EmptyIndex(t *testing.T) {
	dir := newTestEnv(t)

	out, err := runCLI(t, dir, "", "search", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, `No documents found for "anything"`)
}

func TestSearchCmd_Validation(t *testing.T) {
	dir := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad format", []string{"search", "q", "--format", "xml"}, "invalid format"},
		{"negative k", []string{"search", "q", "-k", "-1"}, "k must be positive"},
		{"no query", []string{"search"}, "requires at least 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, dir, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIndexCmd_DefaultDirectory(t *testing.T) {
	dir := newTestEnv(t)
	raw := filepath.Join(dir, "data", "raw_documents")
	writeDoc(t, filepath.Join(raw, "a.txt"), "alpha document text")
	writeDoc(t, filepath.Join(raw, "sub", "b.md"), "# Beta\n\nbeta document text")
	writeDoc(t, filepath.Join(raw, "tool.exe"), "binary")

	// When: indexing with no paths
	out, err := runCLI(t, dir, "", "index", "--no-tui")

	// Then: the two supported files are added
	require.NoError(t, err)
	assert.Contains(t, out, "Complete: 2 added, 0 skipped, 0 failed")

	// When: indexing again
	out, err = runCLI(t, dir, "", "index", "--no-tui")

	// Then: both are skipped
	require.NoError(t, err)
	assert.Contains(t, out, "Complete: 0 added, 2 skipped, 0 failed")
}

func TestIndexCmd_ExplicitPathsWithLabel(t *testing.T) {
	dir := newTestEnv(t)
	docs := filepath.Join(dir, "contracts")
	writeDoc(t, filepath.Join(docs, "lease.txt"), "lease agreement for the office")

	_, err := runCLI(t, dir, "", "index", docs, "--no-tui", "--label", "legal")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "", "search", "lease", "--label", "legal", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"filename": "lease.txt"`)
}

func TestIndexCmd_MissingDefaultDirectory(t *testing.T) {
	dir := newTestEnv(t)

	_, err := runCLI(t, dir, "", "index", "--no-tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw_documents")
}

func TestIndexCmd_OnlyFailures(t *testing.T) {
	dir := newTestEnv(t)

	_, err := runCLI(t, dir, "", "index", filepath.Join(dir, "missing.txt"), "--no-tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents could be added")
}

func TestExportCmd(t *testing.T) {
	dir := newTestEnv(t)
	_, err := runCLI(t, dir, "", "add-text", "one, with a comma", "--title", "First")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "", "add-text", "two\nlines", "--title", "Second")
	require.NoError(t, err)

	t.Run("to file", func(t *testing.T) {
		path := filepath.Join(dir, "out", "export.csv")

		out, err := runCLI(t, dir, "", "export", "--output", path)

		require.NoError(t, err)
		assert.Contains(t, out, "Exported 2 documents")

		f, err := os.Open(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "id", rows[0][0])
		assert.Equal(t, []string{"0", "First"}, rows[1][:2])
		assert.Equal(t, "two\nlines", rows[2][5])
	})

	t.Run("to stdout", func(t *testing.T) {
		out, err := runCLI(t, dir, "", "export", "-o", "-")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "id,filename,doc_type"))
	})
}

func TestExportCmd_Empty(t *testing.T) {
	dir := newTestEnv(t)
	path := filepath.Join(dir, "export.csv")

	_, err := runCLI(t, dir, "", "export", "--output", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents to export")
	assert.NoFileExists(t, path)
}

func TestInfoCmd_JSON(t *testing.T) {
	dir := newTestEnv(t)
	_, err := runCLI(t, dir, "", "add-text", "hello world", "--label", "notes")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "", "info", "--json")
	require.NoError(t, err)

	var info struct {
		Documents       int            `json:"documents"`
		Capacity        int            `json:"capacity"`
		TotalCharacters int            `json:"total_characters"`
		Labels          map[string]int `json:"labels"`
		IndexSize       int64          `json:"index_size"`
		EmbedderStatus  string         `json:"embedder_status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 1, info.Documents)
	assert.Equal(t, 64, info.Capacity)
	assert.Equal(t, 11, info.TotalCharacters)
	assert.Equal(t, map[string]int{"notes": 1}, info.Labels)
	assert.Positive(t, info.IndexSize)
	assert.Equal(t, "ready", info.EmbedderStatus)
}

func TestInfoCmd_Text(t *testing.T) {
	dir := newTestEnv(t)

	out, err := runCLI(t, dir, "", "info")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  0 / 64 capacity")
}

func TestStatsCmd(t *testing.T) {
	dir := newTestEnv(t)

	// Given: no command has run yet
	out, err := runCLI(t, dir, "", "stats")

	// Then: nothing is recorded
	require.NoError(t, err)
	assert.Contains(t, out, "No queries recorded yet.")

	// When: two searches run, one twice
	_, err = runCLI(t, dir, "", "add-text", "Quarterly revenue report.")
	require.NoError(t, err)
	for _, q := range []string{"revenue", "revenue", "forecast"} {
		_, err = runCLI(t, dir, "", "search", q)
		require.NoError(t, err)
	}

	// Then: the summary reflects them
	out, err = runCLI(t, dir, "", "stats", "--json")
	require.NoError(t, err)

	var summary struct {
		Total      int64 `json:"total_queries"`
		TopQueries []struct {
			Query string `json:"query"`
			Count int64  `json:"count"`
		} `json:"top_queries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, int64(3), summary.Total)
	require.NotEmpty(t, summary.TopQueries)
	assert.Equal(t, "revenue", summary.TopQueries[0].Query)
	assert.Equal(t, int64(2), summary.TopQueries[0].Count)

	out, err = runCLI(t, dir, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total queries:")
	assert.Contains(t, out, "1. revenue (2)")
}

func TestStatsCmd_Disabled(t *testing.T) {
	dir := newTestEnv(t)
	t.Setenv("DOCSEARCH_TELEMETRY", "false")

	_, err := runCLI(t, dir, "", "stats")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestDataDirOverride(t *testing.T) {
	dir := newTestEnv(t)
	dataDir := filepath.Join(dir, "custom-index")

	_, err := runCLI(t, dir, "", "add-text", "stored elsewhere", "--data-dir", dataDir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dataDir, "documents.bin"))
	assert.NoDirExists(t, filepath.Join(dir, "data", "index_data"))
}
