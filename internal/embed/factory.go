package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProviderType selects an embedding backend.
type ProviderType string

const (
	// ProviderAuto uses Ollama when reachable, otherwise the static embedder.
	ProviderAuto ProviderType = "auto"

	// ProviderOllama requires a reachable Ollama server.
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings, no network.
	ProviderStatic ProviderType = "static"
)

// ParseProvider maps a config string to a ProviderType. Empty means auto.
func ParseProvider(s string) (ProviderType, error) {
	switch p := ProviderType(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ProviderAuto:
		return ProviderAuto, nil
	case ProviderOllama, ProviderStatic:
		return p, nil
	default:
		return "", fmt.Errorf("unknown embeddings provider %q (want auto, ollama or static)", s)
	}
}

// FactoryConfig carries the embedder settings resolved from configuration.
type FactoryConfig struct {
	Model      string
	Host       string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	// CacheSize <= 0 disables the query cache.
	CacheSize int
}

// NewEmbedder creates an embedder for provider. ProviderAuto falls back
// to the static embedder when Ollama cannot be reached; an explicit
// ProviderOllama returns the error instead.
func NewEmbedder(ctx context.Context, provider ProviderType, cfg FactoryConfig) (Embedder, error) {
	var embedder Embedder

	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOllama:
		e, err := NewOllamaEmbedder(ctx, ollamaConfigFrom(cfg))
		if err != nil {
			return nil, err
		}
		embedder = e

	case ProviderAuto, "":
		e, err := NewOllamaEmbedder(ctx, ollamaConfigFrom(cfg))
		if err != nil {
			slog.Warn("embedder_fallback_static",
				slog.String("reason", err.Error()),
				slog.String("model", cfg.Model))
			embedder = NewStaticEmbedder(cfg.Dimensions)
		} else {
			embedder = e
		}

	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", provider)
	}

	slog.Info("embedder_selected",
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	if cfg.CacheSize > 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}
	return embedder, nil
}

func ollamaConfigFrom(cfg FactoryConfig) OllamaConfig {
	oc := DefaultOllamaConfig()
	if cfg.Host != "" {
		oc.Host = cfg.Host
	}
	if cfg.Model != "" {
		oc.Model = cfg.Model
	}
	if cfg.BatchSize > 0 {
		oc.BatchSize = cfg.BatchSize
	}
	if cfg.Timeout > 0 {
		oc.Timeout = cfg.Timeout
	}
	oc.Dimensions = cfg.Dimensions
	return oc
}
