package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/telemetry"
)

var latencyLabels = map[telemetry.LatencyBucket]string{
	telemetry.BucketP10:   "<10ms",
	telemetry.BucketP50:   "10-50ms",
	telemetry.BucketP100:  "50-100ms",
	telemetry.BucketP500:  "100-500ms",
	telemetry.BucketP1000: ">500ms",
}

func newStatsCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		top        int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query statistics",
		Long: `Display the local query log: totals, the most frequent queries and
terms, recent queries that found nothing and the latency distribution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, g, jsonOutput, top)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of top queries and terms to show")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, g *globalOptions, jsonOutput bool, top int) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Telemetry.Disabled {
		return fmt.Errorf("query telemetry is disabled (telemetry.disabled in config)")
	}

	path := cfg.TelemetryPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		output.New(cmd.OutOrStdout()).Info("No queries recorded yet.")
		return nil
	}

	store, err := telemetry.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to open query log: %w", err)
	}
	defer func() { _ = store.Close() }()

	summary, err := store.Summary(ctx, top)
	if err != nil {
		return fmt.Errorf("failed to read query log: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printStats(cmd.OutOrStdout(), summary)
	return nil
}

func printStats(w io.Writer, s *telemetry.Summary) {
	out := output.New(w)

	out.Header("Query Statistics")
	out.Newline()
	out.Field("Total queries", s.Total)
	out.Field("Zero results", fmt.Sprintf("%d (%.1f%%)", s.ZeroResult, s.ZeroResultPercentage()))
	out.Field("Avg latency", fmt.Sprintf("%.1fms", s.AvgLatencyMs))
	if !s.Since.IsZero() {
		out.Field("Since", s.Since.Local().Format("2006-01-02 15:04"))
	}
	out.Newline()

	if len(s.TopQueries) > 0 {
		out.Header("Top Queries")
		for i, q := range s.TopQueries {
			out.Infof("%d. %s (%d)", i+1, q.Query, q.Count)
		}
		out.Newline()
	}

	if len(s.TopTerms) > 0 {
		out.Header("Top Terms")
		for i, t := range s.TopTerms {
			out.Infof("%d. %s (%d)", i+1, t.Term, t.Count)
		}
		out.Newline()
	}

	if len(s.RecentZeroResults) > 0 {
		out.Header("Recent Zero-Result Queries")
		for _, q := range s.RecentZeroResults {
			out.Infof("- %q", q)
		}
		out.Newline()
	}

	if len(s.Latency) > 0 {
		out.Header("Latency Distribution")
		for _, b := range telemetry.AllBuckets {
			if count, ok := s.Latency[b]; ok {
				out.Field(latencyLabels[b], count)
			}
		}
	}
}
