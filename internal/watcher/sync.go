package watcher

import (
	"context"
	"log/slog"
	"os"

	"github.com/Aman-CERP/docsearch/internal/ingest"
)

// PathAdder ingests files.
type PathAdder interface {
	AddPaths(ctx context.Context, paths []string, opts ...ingest.AddOption) (*ingest.Result, error)
}

var _ PathAdder = (*ingest.Ingester)(nil)

// Sync feeds each batch from w to adder until the event channel closes or
// ctx is done. Deletions are logged only; the document store is append-only.
// Files already stored are skipped by the ingester, so a modified file keeps
// its original text.
func Sync(ctx context.Context, w *Watcher, adder PathAdder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher_error", slog.String("error", err.Error()))
		case batch, ok := <-w.Events():
			if !ok {
				return ctx.Err()
			}
			paths := CandidatePaths(batch)
			for _, ev := range batch {
				if ev.Operation == OpDelete {
					logger.Info("watch_file_removed", slog.String("path", ev.Path))
				}
			}
			if len(paths) == 0 {
				continue
			}

			res, err := adder.AddPaths(ctx, paths)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("watch_ingest_failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("watch_ingested",
				slog.Int("added", res.Added),
				slog.Int("skipped", len(res.Skipped)),
				slog.Int("failed", len(res.Failures)))
		}
	}
}

// CandidatePaths returns the regular files in batch that were created,
// modified or renamed into place.
func CandidatePaths(batch []FileEvent) []string {
	var paths []string
	for _, ev := range batch {
		if ev.IsDir || ev.Operation == OpDelete {
			continue
		}
		info, err := os.Stat(ev.Path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, ev.Path)
	}
	return paths
}
