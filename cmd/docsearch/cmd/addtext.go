package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/output"
)

func newAddTextCmd(g *globalOptions) *cobra.Command {
	var label, title string

	cmd := &cobra.Command{
		Use:   "add-text <text>",
		Short: "Add a piece of text as a document",
		Long: `Embed and store text given on the command line. The document has no
source file; its title is shown in place of a filename.`,
		Example: `  docsearch add-text "Invoices are due within 30 days." --label finance --title "Payment terms"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a, &err)

			id, err := a.Ingester.AddText(ctx, strings.Join(args, " "), label, title)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Added document %d", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Document label (default: general)")
	cmd.Flags().StringVar(&title, "title", "", "Document title (default: Direct document)")

	return cmd
}
