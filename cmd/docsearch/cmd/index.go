package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/app"
	"github.com/Aman-CERP/docsearch/internal/ingest"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

type indexOptions struct {
	label string
	noTUI bool
}

func newIndexCmd(g *globalOptions) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Add documents to the index",
		Long: `Extract, embed and store documents.

Each path may be a file or a directory; directories are scanned
recursively for supported file types. With no paths the configured
raw documents directory is scanned.

Files already in the index (same absolute path or same content) are
skipped, so re-running index only adds what is new.`,
		Example: `  docsearch index
  docsearch index ~/reports --label finance
  docsearch index contract.pdf notes.md --no-tui`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, g, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.label, "label", "", "Label recorded on every added document")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, g *globalOptions, args []string, opts indexOptions) (err error) {
	out := output.New(cmd.OutOrStdout())

	a, err := g.openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	sourceDir := a.Config.Paths.RawDocumentsDir
	var paths []string
	if len(args) == 0 {
		paths, err = a.Ingester.ScanDir(sourceDir)
	} else {
		if len(args) == 1 {
			sourceDir = args[0]
		}
		paths, err = expandPaths(a, args)
	}
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		out.Warningf("No supported documents found in %s", sourceDir)
		return nil
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithSourceDir(sourceDir),
	))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}

	addOpts := []ingest.AddOption{ingest.WithRenderer(renderer)}
	if opts.label != "" {
		addOpts = append(addOpts, ingest.WithLabel(opts.label))
	}
	res, addErr := a.Ingester.AddPaths(ctx, paths, addOpts...)
	_ = renderer.Stop()

	if addErr != nil {
		return addErr
	}
	if len(res.Failures) > 0 && res.Added == 0 && len(res.Skipped) == 0 {
		return fmt.Errorf("no documents could be added (%d failed)", len(res.Failures))
	}
	return nil
}

// expandPaths replaces directories with the supported files beneath them.
func expandPaths(a *app.App, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// Let the ingester report it as a per-file failure.
			paths = append(paths, arg)
			continue
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := a.Ingester.ScanDir(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}
