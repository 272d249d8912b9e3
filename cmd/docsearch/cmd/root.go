// Package cmd provides the CLI commands for docsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/app"
	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// globalOptions holds the persistent flags and the logger they produce.
type globalOptions struct {
	debug   bool
	offline bool
	dataDir string
	dir     string

	logger  *slog.Logger
	cleanup func()
}

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Local semantic search over your documents",
		Long: `docsearch extracts text from PDF, DOCX, HTML, CSV, XLSX and plain text
files, embeds it and stores the vectors in a persistent HNSW index.

Queries return the nearest documents by cosine distance. The same store
is available to AI assistants through 'docsearch serve' (MCP over stdio).`,
		Version:       version.Version,
		SilenceUsage:  true,
	}
	cmd.SetVersionTemplate("docsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging to ~/.docsearch/logs/")
	cmd.PersistentFlags().BoolVar(&g.offline, "offline", false, "Use static embeddings (no Ollama)")
	cmd.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Directory holding the index files (overrides config)")
	cmd.PersistentFlags().StringVar(&g.dir, "dir", "", "Project directory for .docsearch.yaml (default: current directory)")

	cmd.PersistentPreRunE = g.startLogging
	cmd.PersistentPostRunE = g.stopLogging

	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newQueryCmd(g))
	cmd.AddCommand(newAddTextCmd(g))
	cmd.AddCommand(newExportCmd(g))
	cmd.AddCommand(newInfoCmd(g))
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startLogging sends warnings to stderr, or everything to the log file in
// debug mode. serve replaces this with file-only logging.
func (g *globalOptions) startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.Config{Level: "warn"}
	if g.debug {
		cfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	g.logger = logger
	g.cleanup = cleanup

	if g.debug {
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func (g *globalOptions) stopLogging(_ *cobra.Command, _ []string) error {
	if g.cleanup != nil {
		g.cleanup()
		g.cleanup = nil
	}
	return nil
}

// setLogger swaps the active logger, closing the previous one.
func (g *globalOptions) setLogger(logger *slog.Logger, cleanup func()) {
	if g.cleanup != nil {
		g.cleanup()
	}
	g.logger = logger
	g.cleanup = cleanup
}

// loadConfig resolves configuration for the project directory and applies
// the --data-dir override.
func (g *globalOptions) loadConfig() (*config.Config, error) {
	dir := g.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	if g.dataDir != "" {
		abs, err := filepath.Abs(g.dataDir)
		if err != nil {
			return nil, fmt.Errorf("invalid data directory: %w", err)
		}
		cfg.Paths.DataDir = abs
	}
	return cfg, nil
}

// openApp loads configuration and builds the runtime. Callers must Close it.
func (g *globalOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return g.newApp(ctx, cfg)
}

func (g *globalOptions) newApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	return app.New(ctx, cfg, app.Options{
		Offline: g.offline,
		Logger:  g.log(),
	})
}

func (g *globalOptions) log() *slog.Logger {
	if g.logger == nil {
		return slog.Default()
	}
	return g.logger
}

// closeApp closes a and reports a failed final save unless err is already set.
func closeApp(ctx context.Context, a *app.App, err *error) {
	if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil && *err == nil {
		*err = cerr
	}
}
