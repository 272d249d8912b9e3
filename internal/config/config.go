package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// Config represents the complete docsearch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// PathsConfig locates persisted state and source documents.
// Relative paths are resolved against the project directory passed to Load.
type PathsConfig struct {
	// DataDir holds the index blob, embeddings matrix and document list.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// RawDocumentsDir is scanned by `docsearch index` and `docsearch watch`.
	RawDocumentsDir string `yaml:"raw_documents_dir" json:"raw_documents_dir"`
}

// IndexConfig configures the ANN index.
type IndexConfig struct {
	InitialCapacity int     `yaml:"initial_capacity" json:"initial_capacity"`
	GrowthMargin    int     `yaml:"growth_margin" json:"growth_margin"`
	M               int     `yaml:"m" json:"m"`
	EfSearch        int     `yaml:"ef_search" json:"ef_search"`
	Ml              float64 `yaml:"ml" json:"ml"`
	// Metric is "cosine" or "l2".
	Metric string `yaml:"metric" json:"metric"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama", "static" or empty for auto-detection.
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"` // 0 = detect from embedder
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	Timeout    string `yaml:"timeout" json:"timeout"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	DefaultK     int `yaml:"default_k" json:"default_k"`
	SnippetChars int `yaml:"snippet_chars" json:"snippet_chars"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	Workers       int      `yaml:"workers" json:"workers"`
	Extensions    []string `yaml:"extensions" json:"extensions"`
	// Exclude holds gitignore-style patterns, relative to the scanned
	// directory, applied before that directory's .docsearchignore.
	Exclude       []string `yaml:"exclude" json:"exclude"`
	WatchDebounce string   `yaml:"watch_debounce" json:"watch_debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// TelemetryConfig configures the local query log.
type TelemetryConfig struct {
	Disabled bool `yaml:"disabled" json:"disabled"`
	// Path of the SQLite database. Empty means <data_dir>/telemetry.db.
	Path string `yaml:"path" json:"path"`
}

// DefaultExtensions are the file types the extractor registry understands.
var DefaultExtensions = []string{".pdf", ".docx", ".html", ".htm", ".csv", ".xlsx", ".txt", ".md"}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:         filepath.Join("data", "index_data"),
			RawDocumentsDir: filepath.Join("data", "raw_documents"),
		},
		Index: IndexConfig{
			InitialCapacity: 100000,
			GrowthMargin:    10000,
			M:               16,
			EfSearch:        20,
			Ml:              0.25,
			Metric:          "cosine",
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // auto: Ollama when reachable, static otherwise
			Model:      "all-minilm",
			Dimensions: 0,
			OllamaHost: "", // Empty uses http://localhost:11434
			BatchSize:  32,
			Timeout:    "60s",
			CacheSize:  1000,
		},
		Search: SearchConfig{
			DefaultK:     5,
			SnippetChars: 300,
		},
		Ingest: IngestConfig{
			Workers:       runtime.NumCPU(),
			Extensions:    append([]string(nil), DefaultExtensions...),
			WatchDebounce: "500ms",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/docsearch/config.yaml, else ~/.config/docsearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "docsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig returns nil, nil when there is no user config.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parseYAML(configPath, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Load loads configuration for the project rooted at dir.
// Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config (~/.config/docsearch/config.yaml)
//  3. Project config (.docsearch.yaml in dir)
//  4. Environment variables (DOCSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := loadUserConfig()
	if err != nil {
		return nil, docerrors.ConfigError("failed to load user config", err)
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, docerrors.ConfigError("failed to load project config", err)
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges .docsearch.yaml (or .yml) from dir when present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".docsearch.yaml", ".docsearch.yml"} {
		path := filepath.Join(dir, name)
		if !fileExists(path) {
			continue
		}
		var parsed Config
		if err := parseYAML(path, &parsed); err != nil {
			return err
		}
		c.mergeWith(&parsed)
		return nil
	}
	return nil
}

func parseYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	setString(&c.Paths.DataDir, other.Paths.DataDir)
	setString(&c.Paths.RawDocumentsDir, other.Paths.RawDocumentsDir)

	setInt(&c.Index.InitialCapacity, other.Index.InitialCapacity)
	setInt(&c.Index.GrowthMargin, other.Index.GrowthMargin)
	setInt(&c.Index.M, other.Index.M)
	setInt(&c.Index.EfSearch, other.Index.EfSearch)
	if other.Index.Ml != 0 {
		c.Index.Ml = other.Index.Ml
	}
	setString(&c.Index.Metric, other.Index.Metric)

	setString(&c.Embeddings.Provider, other.Embeddings.Provider)
	setString(&c.Embeddings.Model, other.Embeddings.Model)
	setInt(&c.Embeddings.Dimensions, other.Embeddings.Dimensions)
	setString(&c.Embeddings.OllamaHost, other.Embeddings.OllamaHost)
	setInt(&c.Embeddings.BatchSize, other.Embeddings.BatchSize)
	setString(&c.Embeddings.Timeout, other.Embeddings.Timeout)
	setInt(&c.Embeddings.CacheSize, other.Embeddings.CacheSize)

	setInt(&c.Search.DefaultK, other.Search.DefaultK)
	setInt(&c.Search.SnippetChars, other.Search.SnippetChars)

	setInt(&c.Ingest.Workers, other.Ingest.Workers)
	if len(other.Ingest.Extensions) > 0 {
		c.Ingest.Extensions = other.Ingest.Extensions
	}
	if len(other.Ingest.Exclude) > 0 {
		c.Ingest.Exclude = other.Ingest.Exclude
	}
	setString(&c.Ingest.WatchDebounce, other.Ingest.WatchDebounce)

	setString(&c.Server.Transport, other.Server.Transport)
	setString(&c.Server.LogLevel, other.Server.LogLevel)

	if other.Telemetry.Disabled {
		c.Telemetry.Disabled = true
	}
	setString(&c.Telemetry.Path, other.Telemetry.Path)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies DOCSEARCH_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCSEARCH_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("DOCSEARCH_RAW_DOCUMENTS_DIR"); v != "" {
		c.Paths.RawDocumentsDir = v
	}
	if v := os.Getenv("DOCSEARCH_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCSEARCH_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCSEARCH_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("DOCSEARCH_INITIAL_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Index.InitialCapacity = n
		}
	}
	if v := os.Getenv("DOCSEARCH_DEFAULT_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.DefaultK = n
		}
	}
	if v := os.Getenv("DOCSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCSEARCH_TELEMETRY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Telemetry.Disabled = !b
		}
	}
}

// resolvePaths makes relative data paths absolute against dir.
func (c *Config) resolvePaths(dir string) {
	if dir == "" {
		return
	}
	if !filepath.IsAbs(c.Paths.DataDir) {
		c.Paths.DataDir = filepath.Join(dir, c.Paths.DataDir)
	}
	if !filepath.IsAbs(c.Paths.RawDocumentsDir) {
		c.Paths.RawDocumentsDir = filepath.Join(dir, c.Paths.RawDocumentsDir)
	}
	if c.Telemetry.Path != "" && !filepath.IsAbs(c.Telemetry.Path) {
		c.Telemetry.Path = filepath.Join(dir, c.Telemetry.Path)
	}
}

// TelemetryPath returns the query log database path.
func (c *Config) TelemetryPath() string {
	if c.Telemetry.Path != "" {
		return c.Telemetry.Path
	}
	return filepath.Join(c.Paths.DataDir, "telemetry.db")
}

// EmbedTimeout parses embeddings.timeout, defaulting to 60s.
func (c *Config) EmbedTimeout() time.Duration {
	return parseDuration(c.Embeddings.Timeout, 60*time.Second)
}

// WatchDebounce parses ingest.watch_debounce, defaulting to 500ms.
func (c *Config) WatchDebounce() time.Duration {
	return parseDuration(c.Ingest.WatchDebounce, 500*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate returns a ConfigurationError describing the first invalid field.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return docerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	if c.Index.InitialCapacity <= 0 {
		return invalid("index.initial_capacity must be positive, got %d", c.Index.InitialCapacity)
	}
	if c.Index.GrowthMargin < 0 {
		return invalid("index.growth_margin must be non-negative, got %d", c.Index.GrowthMargin)
	}
	if c.Index.M <= 0 || c.Index.EfSearch <= 0 {
		return invalid("index.m and index.ef_search must be positive")
	}
	switch strings.ToLower(c.Index.Metric) {
	case "cosine", "l2":
	default:
		return invalid("index.metric must be 'cosine' or 'l2', got %s", c.Index.Metric)
	}
	if c.Search.DefaultK <= 0 {
		return invalid("search.default_k must be positive, got %d", c.Search.DefaultK)
	}
	if c.Search.SnippetChars <= 0 {
		return invalid("search.snippet_chars must be positive, got %d", c.Search.SnippetChars)
	}
	if c.Embeddings.BatchSize <= 0 {
		return invalid("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	if c.Embeddings.Provider != "" {
		switch strings.ToLower(c.Embeddings.Provider) {
		case "ollama", "static":
		default:
			return invalid("embeddings.provider must be 'ollama', 'static', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return invalid("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
