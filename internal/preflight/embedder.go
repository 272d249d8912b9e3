package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Aman-CERP/docsearch/internal/ingest"
	"github.com/Aman-CERP/docsearch/internal/store"
)

const embedderProbeTimeout = 5 * time.Second

// CheckEmbedder reports whether the embedding backend answers. The static
// embedder always passes; an unreachable Ollama is a failure because
// indexing and search both need it.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
	}
	info := ingest.EmbedderInfo(c.embedder)

	ctx, cancel := context.WithTimeout(ctx, embedderProbeTimeout)
	defer cancel()
	if !c.embedder.Available(ctx) {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s (%s) not reachable", info.Backend, info.Model)
		result.Details = "Start Ollama ('ollama serve') or run with --offline"
		return result
	}

	result.Message = fmt.Sprintf("%s (%s, %d dims)", info.Backend, info.Model, info.Dimensions)
	if info.Backend == "static" {
		result.Status = StatusWarn
		result.Details = "Static embeddings match on shared words only; install Ollama for semantic search"
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckIndex loads the persisted index in dataDir, if any, and compares its
// width with the embedder's.
func (c *Checker) CheckIndex(ctx context.Context, dataDir string) CheckResult {
	result := CheckResult{
		Name:     "index",
		Required: true,
	}

	engine := store.NewVectorSearchEngine(store.DefaultEngineConfig(dataDir))
	indexPath, embeddingsPath, documentsPath := engine.Paths()
	present := 0
	for _, p := range []string{indexPath, embeddingsPath, documentsPath} {
		if _, err := os.Stat(p); err == nil {
			present++
		}
	}
	if present == 0 {
		result.Status = StatusWarn
		result.Message = "no index yet"
		result.Details = "Run 'docsearch index' to add documents"
		return result
	}

	if err := engine.Load(ctx); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		result.Details = "Move the data directory aside and re-index"
		return result
	}

	result.Message = fmt.Sprintf("%d documents, %d dims", engine.Count(), engine.Dimensions())
	if c.embedder != nil && c.embedder.Dimensions() != engine.Dimensions() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("index has %d dims, embedder produces %d", engine.Dimensions(), c.embedder.Dimensions())
		result.Details = "Use the embedding model the index was built with, or re-index into a new data directory"
		return result
	}
	result.Status = StatusPass
	return result
}
