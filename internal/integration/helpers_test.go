package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/app"
	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/embed"
)

// Integration tests wire the real components through app.New: extraction,
// the static embedder, the HNSW engine with its files, search and telemetry.

const testDims = 64

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewConfig()
	cfg.Paths.DataDir = filepath.Join(root, "index_data")
	cfg.Paths.RawDocumentsDir = filepath.Join(root, "raw_documents")
	cfg.Index.InitialCapacity = 32
	cfg.Index.GrowthMargin = 8
	cfg.Ingest.Workers = 2
	require.NoError(t, os.MkdirAll(cfg.Paths.RawDocumentsDir, 0o755))
	return cfg
}

// openApp builds an App that is closed when the test ends. Close is
// idempotent, so tests may also close it early.
func openApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, app.Options{Embedder: embed.NewStaticEmbedder(testDims)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

// writeDocs creates name -> content files under dir.
func writeDocs(t *testing.T, dir string, docs map[string]string) {
	t.Helper()
	for name, content := range docs {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

var corpus = map[string]string{
	"finance/invoices.txt": "Invoices are payable within thirty days of receipt.",
	"hr/holidays.md":       "# Holidays\n\nEmployees receive twenty five days of annual leave.",
	"ops/servers.txt":      "Server maintenance windows run every Sunday night.",
}
