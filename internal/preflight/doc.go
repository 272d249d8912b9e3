// Package preflight checks that docsearch can run against a data directory.
//
// The checks cover:
//   - Free disk space where the index is stored (minimum 100MB)
//   - Write access to the data directory
//   - File descriptor limits
//   - Consistency of the persisted index files with the embedder width
//   - Reachability of the embedding backend
//
// Use the Checker type to run all checks:
//
//	checker := preflight.New(preflight.WithEmbedder(e))
//	results := checker.RunAll(ctx, cfg.Paths.DataDir)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
