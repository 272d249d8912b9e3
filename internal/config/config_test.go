package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// isolate points the user config at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return xdg
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join("data", "index_data"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join("data", "raw_documents"), cfg.Paths.RawDocumentsDir)

	assert.Equal(t, 100000, cfg.Index.InitialCapacity)
	assert.Equal(t, 10000, cfg.Index.GrowthMargin)
	assert.Equal(t, 16, cfg.Index.M)
	assert.Equal(t, 20, cfg.Index.EfSearch)
	assert.Equal(t, "cosine", cfg.Index.Metric)

	assert.Equal(t, "", cfg.Embeddings.Provider) // auto-detect
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
	assert.Equal(t, 0, cfg.Embeddings.Dimensions)

	assert.Equal(t, 5, cfg.Search.DefaultK)
	assert.Equal(t, 300, cfg.Search.SnippetChars)

	assert.Equal(t, runtime.NumCPU(), cfg.Ingest.Workers)
	assert.Contains(t, cfg.Ingest.Extensions, ".pdf")
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.False(t, cfg.Telemetry.Disabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFiles_ResolvesPathsAgainstDir(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "index_data"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(dir, "data", "index_data", "telemetry.db"), cfg.TelemetryPath())
}

func TestLoad_Precedence(t *testing.T) {
	// Given: a user config, a project config and an env var
	xdg := isolate(t)
	userPath := filepath.Join(xdg, "docsearch", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte(`
search:
  default_k: 7
  snippet_chars: 120
embeddings:
  model: nomic-embed-text
`), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsearch.yaml"), []byte(`
search:
  default_k: 9
index:
  initial_capacity: 50
telemetry:
  disabled: true
`), 0o644))
	t.Setenv("DOCSEARCH_EMBEDDINGS_MODEL", "mxbai-embed-large")

	// When: loading
	cfg, err := Load(dir)

	// Then: later layers win, untouched fields keep earlier values
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Search.DefaultK)
	assert.Equal(t, 120, cfg.Search.SnippetChars)
	assert.Equal(t, 50, cfg.Index.InitialCapacity)
	assert.Equal(t, 10000, cfg.Index.GrowthMargin)
	assert.Equal(t, "mxbai-embed-large", cfg.Embeddings.Model)
	assert.True(t, cfg.Telemetry.Disabled)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsearch.yml"), []byte("search:\n  default_k: 3\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.DefaultK)
}

func TestLoad_InvalidYAML_ReturnsConfigurationError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsearch.yaml"), []byte("search: [oops"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.True(t, errors.Is(err, docerrors.ErrConfiguration))
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DOCSEARCH_DATA_DIR", "/var/lib/docsearch")
	t.Setenv("DOCSEARCH_INITIAL_CAPACITY", "42")
	t.Setenv("DOCSEARCH_DEFAULT_K", "11")
	t.Setenv("DOCSEARCH_TELEMETRY", "false")
	t.Setenv("DOCSEARCH_EMBEDDINGS_PROVIDER", "static")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/docsearch", cfg.Paths.DataDir)
	assert.Equal(t, 42, cfg.Index.InitialCapacity)
	assert.Equal(t, 11, cfg.Search.DefaultK)
	assert.True(t, cfg.Telemetry.Disabled)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestValidate_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative dimensions", func(c *Config) { c.Embeddings.Dimensions = -1 }},
		{"zero capacity", func(c *Config) { c.Index.InitialCapacity = 0 }},
		{"negative margin", func(c *Config) { c.Index.GrowthMargin = -5 }},
		{"bad metric", func(c *Config) { c.Index.Metric = "dot" }},
		{"zero k", func(c *Config) { c.Search.DefaultK = 0 }},
		{"bad provider", func(c *Config) { c.Embeddings.Provider = "mlx" }},
		{"bad transport", func(c *Config) { c.Server.Transport = "sse" }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Equal(t, docerrors.ErrCodeConfigInvalid, docerrors.GetCode(err))
		})
	}
}

func TestDurations_FallBackOnInvalid(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 60*time.Second, cfg.EmbedTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())

	cfg.Embeddings.Timeout = "nonsense"
	cfg.Ingest.WatchDebounce = "2s"
	assert.Equal(t, 60*time.Second, cfg.EmbedTimeout())
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce())
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Search.DefaultK = 12

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".docsearch.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Search.DefaultK)
}

func TestInitUserConfig_BacksUpOnForce(t *testing.T) {
	isolate(t)

	// First init creates the file without a backup
	backup, err := InitUserConfig(false)
	require.NoError(t, err)
	assert.Empty(t, backup)
	assert.True(t, UserConfigExists())

	// Second init without force refuses
	_, err = InitUserConfig(false)
	assert.Error(t, err)

	// Forced init backs up the old file
	backup, err = InitUserConfig(true)
	require.NoError(t, err)
	assert.FileExists(t, backup)
}

func TestInitUserConfig_TemplateMatchesDefaults(t *testing.T) {
	isolate(t)

	// Given: a freshly written user config
	_, err := InitUserConfig(false)
	require.NoError(t, err)

	// When: loading a project with no other config
	cfg, err := Load(t.TempDir())

	// Then: the template changes nothing
	require.NoError(t, err)
	defaults := NewConfig()
	assert.Equal(t, defaults.Embeddings, cfg.Embeddings)
	assert.Equal(t, defaults.Search, cfg.Search)
	assert.Equal(t, defaults.Index, cfg.Index)
}

func TestBackupUserConfig_PrunesOldBackups(t *testing.T) {
	isolate(t)
	require.NoError(t, NewConfig().WriteYAML(GetUserConfigPath()))

	for i := 0; i < MaxBackups+2; i++ {
		_, err := BackupUserConfig()
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
}
