package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/extract"
	"github.com/Aman-CERP/docsearch/internal/ignore"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/watcher"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	var (
		skipInitial bool
		polling     bool
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Index new documents as they appear",
		Long: `Watch a directory (default: the raw documents directory) and add files
as they are created or copied in. Existing files are indexed first unless
--skip-initial is set.

The store is append-only: deleting a file does not remove its document,
and a modified file keeps the text it was first indexed with.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, g, args, skipInitial, polling)
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "Do not index existing files before watching")
	cmd.Flags().BoolVar(&polling, "polling", false, "Poll the directory instead of using file system events")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, g *globalOptions, args []string, skipInitial, polling bool) (err error) {
	out := output.New(cmd.OutOrStdout())

	a, err := g.openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	dir := a.Config.Paths.RawDocumentsDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if !skipInitial {
		paths, err := a.Ingester.ScanDir(dir)
		if err != nil {
			return err
		}
		if len(paths) > 0 {
			res, err := a.Ingester.AddPaths(ctx, paths)
			if err != nil {
				return err
			}
			out.Successf("Indexed existing files: %d added, %d skipped, %d failed",
				res.Added, len(res.Skipped), len(res.Failures))
		}
	}

	registry := extract.DefaultRegistry()
	registry.Restrict(a.Config.Ingest.Extensions)
	rules, err := ignore.Load(dir, a.Config.Ingest.Exclude)
	if err != nil {
		return err
	}

	w := watcher.New(watcher.Options{
		DebounceWindow: a.Config.WatchDebounce(),
		Include: func(path string) bool {
			return registry.Supports(path) && !rules.MatchPath(dir, path, false)
		},
		ForcePolling: polling,
	})

	out.Statusf("👀", "Watching %s (%s mode, Ctrl+C to stop)", dir, w.Mode())

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return w.Start(gctx, dir)
	})
	eg.Go(func() error {
		return watcher.Sync(gctx, w, a.Ingester, a.Logger())
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		out.Info("Stopped.")
		return nil
	}
	return err
}
