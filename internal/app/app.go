// Package app assembles the document search runtime from configuration:
// embedder, persisted index, search engine, ingester and query telemetry.
// Every CLI command and the MCP server start from an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/extract"
	"github.com/Aman-CERP/docsearch/internal/ingest"
	"github.com/Aman-CERP/docsearch/internal/mcp"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/telemetry"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

// Options adjust how New builds an App.
type Options struct {
	// Offline forces the static embedder.
	Offline bool

	// Embedder replaces the configured embedder.
	Embedder embed.Embedder

	// IndexFactory replaces the default HNSW index.
	IndexFactory func() store.VectorIndex

	Logger *slog.Logger
}

// App owns the long-lived components. Close releases them.
type App struct {
	Config   *config.Config
	Embedder embed.Embedder
	Index    *store.VectorSearchEngine
	Search   *search.Engine
	Ingester *ingest.Ingester

	// Telemetry is nil when disabled or when the database could not be opened.
	Telemetry *telemetry.Store

	// Loaded reports whether persisted state was restored.
	Loaded bool

	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// New builds an App. The index is loaded from cfg.Paths.DataDir when all
// three artifacts exist there, otherwise created empty with the embedder's
// width.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	embedder, err := NewEmbedder(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Embedder: embedder,
		logger:   logger,
	}

	if err := a.openIndex(ctx, opts); err != nil {
		_ = embedder.Close()
		return nil, err
	}

	var recorder telemetry.Recorder = telemetry.NopRecorder{}
	if !cfg.Telemetry.Disabled {
		tel, err := telemetry.Open(ctx, cfg.TelemetryPath())
		if err != nil {
			logger.Warn("telemetry_unavailable", slog.String("error", err.Error()))
		} else {
			a.Telemetry = tel
			recorder = tel
		}
	}

	searchCfg := search.DefaultConfig()
	searchCfg.DefaultLimit = cfg.Search.DefaultK
	searchCfg.SnippetChars = cfg.Search.SnippetChars

	a.Search, err = search.NewEngine(a.Index, embedder, searchCfg,
		search.WithRecorder(recorder), search.WithLogger(logger))
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	registry := extract.DefaultRegistry()
	registry.Restrict(cfg.Ingest.Extensions)

	a.Ingester, err = ingest.New(ingest.Dependencies{
		Store:     a.Index,
		Embedder:  embedder,
		Extractor: registry,
		Logger:    logger,
	}, ingest.Config{Workers: cfg.Ingest.Workers, Exclude: cfg.Ingest.Exclude})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	return a, nil
}

// NewEmbedder builds the embedder New would use: opts.Embedder when set,
// otherwise the configured provider, or the static embedder when offline.
func NewEmbedder(ctx context.Context, cfg *config.Config, opts Options) (embed.Embedder, error) {
	if opts.Embedder != nil {
		return opts.Embedder, nil
	}

	provider, err := embed.ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return nil, err
	}
	if opts.Offline {
		provider = embed.ProviderStatic
	}

	return embed.NewEmbedder(ctx, provider, embed.FactoryConfig{
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.OllamaHost,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		Timeout:    cfg.EmbedTimeout(),
		CacheSize:  cfg.Embeddings.CacheSize,
	})
}

func (a *App) openIndex(ctx context.Context, opts Options) error {
	ic := a.Config.Index
	engineCfg := store.DefaultEngineConfig(a.Config.Paths.DataDir)
	engineCfg.InitialCapacity = ic.InitialCapacity
	engineCfg.GrowthMargin = ic.GrowthMargin
	engineCfg.HNSW = store.HNSWConfig{
		Metric:   ic.Metric,
		M:        ic.M,
		EfSearch: ic.EfSearch,
		Ml:       ic.Ml,
	}

	engineOpts := []store.EngineOption{store.WithLogger(a.logger)}
	if opts.IndexFactory != nil {
		engineOpts = append(engineOpts, store.WithIndexFactory(opts.IndexFactory))
	}

	a.Index = store.NewVectorSearchEngine(engineCfg, engineOpts...)
	loaded, err := a.Index.LoadOrCreate(ctx, a.Embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("open index in %s: %w", a.Config.Paths.DataDir, err)
	}
	a.Loaded = loaded
	return nil
}

// Logger returns the logger the App was built with.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// EmbedderInfo describes the active embedder.
func (a *App) EmbedderInfo() ui.EmbedderInfo {
	return ingest.EmbedderInfo(a.Embedder)
}

// NewMCPServer creates an MCP server over this App's components.
func (a *App) NewMCPServer() (*mcp.Server, error) {
	opts := []mcp.ServerOption{
		mcp.WithLogger(a.logger),
		mcp.WithDocuments(a.Index),
	}
	if a.Telemetry != nil {
		opts = append(opts, mcp.WithQueryStats(a.Telemetry))
	}
	return mcp.NewServer(a.Search, a.Ingester, a.Embedder, a.Config, opts...)
}

// Status gathers what `docsearch info` reports.
func (a *App) Status(ctx context.Context) ui.StatusInfo {
	storage := a.Search.StorageInfo()
	info := ui.StatusInfo{
		DataDir:               a.Config.Paths.DataDir,
		Documents:             a.Index.Count(),
		Capacity:              a.Index.Capacity(),
		Dimensions:            a.Index.Dimensions(),
		TotalCharacters:       storage.TotalCharacters,
		TextSizeMB:            storage.TotalSizeMB,
		Labels:                storage.DocumentTypes,
		DocumentsWithMetadata: storage.DocumentsWithMetadata,
		EmbedderModel:         a.Embedder.ModelName(),
		EmbedderStatus:        "offline",
	}
	if a.Embedder.Available(ctx) {
		info.EmbedderStatus = "ready"
	}

	if a.Config.Paths.DataDir == "" {
		return info
	}
	indexPath, embeddingsPath, documentsPath := a.Index.Paths()
	info.IndexSize, info.LastSaved = fileStat(indexPath, info.LastSaved)
	info.EmbeddingsSize, info.LastSaved = fileStat(embeddingsPath, info.LastSaved)
	info.DocumentsSize, info.LastSaved = fileStat(documentsPath, info.LastSaved)
	return info
}

// fileStat returns the size of path and the later of latest and its
// modification time. Missing files count as zero.
func fileStat(path string, latest time.Time) (int64, time.Time) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, latest
	}
	if fi.ModTime().After(latest) {
		latest = fi.ModTime()
	}
	return fi.Size(), latest
}

// Close saves pending index changes and releases the telemetry database and
// the embedder. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.Index != nil {
			if err := a.Index.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("save index: %w", err))
			}
		}
		if a.Telemetry != nil {
			if err := a.Telemetry.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close telemetry: %w", err))
			}
		}
		if a.Embedder != nil {
			if err := a.Embedder.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close embedder: %w", err))
			}
		}
		a.closeErr = errors.Join(errs...)
		if a.closeErr != nil {
			a.logger.Error("app_close_failed", slog.String("error", a.closeErr.Error()))
		}
	})
	return a.closeErr
}
