package embed

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderType
		wantErr bool
	}{
		{"", ProviderAuto, false},
		{"auto", ProviderAuto, false},
		{"Ollama", ProviderOllama, false},
		{" static ", ProviderStatic, false},
		{"mlx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// unreachableHost returns the URL of a server that has already shut down.
func unreachableHost(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()
	return url
}

func TestNewEmbedder_Static(t *testing.T) {
	e, err := NewEmbedder(context.Background(), ProviderStatic, FactoryConfig{Dimensions: 48})
	require.NoError(t, err)

	_, isStatic := e.(*StaticEmbedder)
	assert.True(t, isStatic)
	assert.Equal(t, 48, e.Dimensions())
}

func TestNewEmbedder_AutoFallsBackToStatic(t *testing.T) {
	// Given: no Ollama server
	cfg := FactoryConfig{Host: unreachableHost(t), Timeout: time.Second, CacheSize: 10}

	// When: auto-selecting
	e, err := NewEmbedder(context.Background(), ProviderAuto, cfg)

	// Then: the static embedder is used, wrapped in the cache
	require.NoError(t, err)
	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	_, isStatic := cached.Inner().(*StaticEmbedder)
	assert.True(t, isStatic)
	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestNewEmbedder_ExplicitOllamaFails(t *testing.T) {
	cfg := FactoryConfig{Host: unreachableHost(t), Timeout: time.Second}

	_, err := NewEmbedder(context.Background(), ProviderOllama, cfg)
	assert.Error(t, err)
}

func TestNewEmbedder_Ollama(t *testing.T) {
	f := &fakeOllama{models: []string{"all-minilm"}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	e, err := NewEmbedder(context.Background(), ProviderOllama, FactoryConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "all-minilm", e.ModelName())
	assert.Equal(t, 4, e.Dimensions())
}
