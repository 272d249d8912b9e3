package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/search"
)

func newExportCmd(g *globalOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored documents to CSV",
		Long: `Write every stored document as one CSV row with the columns
id, filename, doc_type, text_length, added_date, text_content and hash.
Use --output - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a, &err)

			docs := a.Index.Documents()
			if outPath == "-" {
				return search.ExportCSV(cmd.OutOrStdout(), docs)
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outPath, err)
			}
			if err := search.ExportCSV(f, docs); err != nil {
				_ = f.Close()
				_ = os.Remove(outPath)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}

			output.New(cmd.OutOrStdout()).Successf("Exported %d documents to %s", len(docs), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "documents_export.csv", "CSV file to write, or - for stdout")

	return cmd
}
