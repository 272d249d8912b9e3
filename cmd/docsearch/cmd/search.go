package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	k        int
	label    string
	scopes   []string
	minScore float64
	format   string // "text", "json"
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Embed the query and return the k nearest documents by cosine distance.

Results are ordered from most to least similar. A label or scope filter is
applied after the nearest-neighbour lookup.`,
		Example: `  docsearch search "termination clause"
  docsearch search "quarterly revenue" -k 10 --label finance
  docsearch search "onboarding" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, g, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.k, "top-k", "k", 0, "Number of results (default from config)")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "Only documents with this label")
	cmd.Flags().StringSliceVarP(&opts.scopes, "scope", "s", nil, "Only documents under this path prefix (repeatable)")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Drop results scoring below this (0-1)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, g *globalOptions, query string, opts searchOptions) (err error) {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q (must be text or json)", opts.format)
	}
	if opts.k < 0 {
		return fmt.Errorf("k must be positive, got %d", opts.k)
	}

	a, err := g.openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	results, err := a.Search.Search(ctx, query, search.SearchOptions{
		Limit:    opts.k,
		Label:    opts.label,
		Scopes:   opts.scopes,
		MinScore: opts.minScore,
	})
	if err != nil {
		return err
	}

	r := ui.NewResultRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
	if opts.format == "json" {
		return r.RenderJSON(query, derefResults(results))
	}
	return r.Render(query, derefResults(results))
}

func derefResults(results []*search.SearchResult) []search.SearchResult {
	out := make([]search.SearchResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
