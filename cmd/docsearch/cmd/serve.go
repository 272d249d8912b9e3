package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Expose search, add_documents and index_status as MCP tools over stdio.

stdout carries JSON-RPC only; logs go to ~/.docsearch/logs/docsearch.log.
View them with 'docsearch logs -f'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport (default from config: stdio)")

	return cmd
}

func runServe(ctx context.Context, g *globalOptions, transport string) (err error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	level := cfg.Server.LogLevel
	if g.debug {
		level = "debug"
	}
	logger, cleanup, err := logging.Setup(logging.ServeConfig(level))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	g.setLogger(logger, cleanup)
	slog.SetDefault(logger)

	logger.Info("serve_starting",
		slog.String("version", version.Version),
		slog.String("transport", transport),
		slog.String("data_dir", cfg.Paths.DataDir))

	a, err := g.newApp(ctx, cfg)
	if err != nil {
		logger.Error("serve_open_failed", slog.String("error", err.Error()))
		return err
	}
	defer closeApp(ctx, a, &err)

	srv, err := a.NewMCPServer()
	if err != nil {
		return err
	}

	err = srv.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("serve_stopped")
	return err
}
