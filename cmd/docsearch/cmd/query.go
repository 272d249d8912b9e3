package cmd

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

const quitCommand = "quit"

// querySearcher is the part of search.Engine the interactive loop needs.
type querySearcher interface {
	Search(ctx context.Context, query string, opts search.SearchOptions) ([]*search.SearchResult, error)
}

func newQueryCmd(g *globalOptions) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search interactively",
		Long: `Read queries from stdin and print the nearest documents with their
distance and full text. Type 'quit' to exit.

A failed query is reported and the session continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a, &err)

			return queryLoop(ctx, a.Search, cmd.InOrStdin(), cmd.OutOrStdout(), k)
		},
	}

	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "Number of results per query (default from config)")

	return cmd
}

// queryLoop prompts until quit or end of input.
func queryLoop(ctx context.Context, s querySearcher, in io.Reader, w io.Writer, k int) error {
	out := output.New(w)
	results := ui.NewResultRenderer(w, true)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out.Prompt("Enter query: ")
		if !scanner.Scan() {
			out.Newline()
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, quitCommand) {
			return nil
		}

		hits, err := s.Search(ctx, query, search.SearchOptions{Limit: k})
		if err != nil {
			out.Errorf("Error: %v", err)
			continue
		}
		if len(hits) == 0 {
			out.Info("No documents found.")
			continue
		}
		if err := results.RenderRaw(derefResults(hits)); err != nil {
			return err
		}
	}
}
