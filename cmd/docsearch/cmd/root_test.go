package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEnv isolates config, logs and index files in a temp directory and
// returns the project directory.
func newTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("DOCSEARCH_INITIAL_CAPACITY", "64")
	t.Setenv("DOCSEARCH_DATA_DIR", "")
	t.Setenv("DOCSEARCH_RAW_DOCUMENTS_DIR", "")
	return dir
}

// runCLI executes the root command offline against dir and returns stdout.
func runCLI(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--offline", "--dir", dir))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	// When: executing with --help
	err := cmd.Execute()

	// Then: usage is shown
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "docsearch")
	assert.Contains(t, buf.String(), "Usage:")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "docsearch version")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{
		"index", "search", "query", "add-text", "export", "info",
		"stats", "watch", "serve", "doctor", "logs", "config", "version",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"debug", "offline", "data-dir", "dir"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestVersionCmd(t *testing.T) {
	dir := newTestEnv(t)

	t.Run("short", func(t *testing.T) {
		out, err := runCLI(t, dir, "", "version", "--short")
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(out))
		assert.NotContains(t, out, "commit")
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCLI(t, dir, "", "version", "--json")
		require.NoError(t, err)

		var info map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Contains(t, info, "version")
		assert.Contains(t, info, "go_version")
	})

	t.Run("full", func(t *testing.T) {
		out, err := runCLI(t, dir, "", "version")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "docsearch "))
	})
}

func TestConfigCmd_InitAndPath(t *testing.T) {
	dir := newTestEnv(t)
	want := filepath.Join(dir, "xdg", "docsearch", "config.yaml")

	// Given: no user config

	// When: printing the path
	out, err := runCLI(t, dir, "", "config", "path")

	// Then: it lives under XDG_CONFIG_HOME
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out))

	// When: initializing
	out, err = runCLI(t, dir, "", "config", "init")

	// Then: the file is written
	require.NoError(t, err)
	assert.Contains(t, out, "Created user configuration")
	assert.FileExists(t, want)

	// When: initializing again without --force
	out, err = runCLI(t, dir, "", "config", "init")

	// Then: the existing file is kept
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	// When: forcing
	out, err = runCLI(t, dir, "", "config", "init", "--force")

	// Then: a backup is reported
	require.NoError(t, err)
	assert.Contains(t, out, "Backup:")
}

func TestConfigCmd_Show(t *testing.T) {
	dir := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsearch.yaml"),
		[]byte("search:\n  default_k: 7\n"), 0o644))

	out, err := runCLI(t, dir, "", "config", "show", "--json")
	require.NoError(t, err)

	var cfg struct {
		Paths struct {
			DataDir string `json:"data_dir"`
		} `json:"paths"`
		Search struct {
			DefaultK int `json:"default_k"`
		} `json:"search"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 7, cfg.Search.DefaultK)
	assert.Equal(t, filepath.Join(dir, "data", "index_data"), cfg.Paths.DataDir)
}

func TestConfigCmd_ShowDataDirOverride(t *testing.T) {
	dir := newTestEnv(t)
	override := filepath.Join(dir, "elsewhere")

	out, err := runCLI(t, dir, "", "config", "show", "--data-dir", override)

	require.NoError(t, err)
	assert.Contains(t, out, "data_dir: "+override)
}

func TestLogsCmd(t *testing.T) {
	dir := newTestEnv(t)
	logFile := filepath.Join(dir, "test.log")
	lines := []string{
		`{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"search_completed","results":3}`,
		`{"time":"2026-01-02T10:00:01Z","level":"ERROR","msg":"ingest_failed"}`,
	}
	require.NoError(t, os.WriteFile(logFile, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	t.Run("tail", func(t *testing.T) {
		out, err := runCLI(t, dir, "", "logs", "--file", logFile, "--no-color")
		require.NoError(t, err)
		assert.Contains(t, out, "search_completed")
		assert.Contains(t, out, "ingest_failed")
	})

	t.Run("level filter", func(t *testing.T) {
		out, err := runCLI(t, dir, "", "logs", "--file", logFile, "--no-color", "--level", "error")
		require.NoError(t, err)
		assert.NotContains(t, out, "search_completed")
		assert.Contains(t, out, "ingest_failed")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runCLI(t, dir, "", "logs", "--file", filepath.Join(dir, "nope.log"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log file not found")
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := runCLI(t, dir, "", "logs", "--file", logFile, "--filter", "(")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid filter pattern")
	})
}

func TestServeCmd_UnknownTransport(t *testing.T) {
	dir := newTestEnv(t)

	_, err := runCLI(t, dir, "", "serve", "--transport", "sse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestDoctorCmd(t *testing.T) {
	dir := newTestEnv(t)

	// Given: an empty project with the static embedder
	out, err := runCLI(t, dir, "", "doctor")

	// Then: the checks pass with warnings
	require.NoError(t, err)
	assert.Contains(t, out, "[WARN] index: no index yet")
	assert.Contains(t, out, "Status: READY_WITH_WARNINGS")

	// When: an index exists, as JSON
	_, err = runCLI(t, dir, "", "add-text", "hello")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "", "doctor", "--json")
	require.NoError(t, err)

	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	for _, c := range report.Checks {
		if c.Name == "index" {
			assert.Equal(t, "pass", c.Status)
		}
	}
}
