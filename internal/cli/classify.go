package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/docwalk"
)

func newClassifyCommand(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "classify <names...>",
		Short: "Show how file names are classified",
		Long: `Print the category docwalk assigns to each name: document, spreadsheet,
archive or unsupported. Only the extension is considered; the files need not
exist.

Examples:
  docwalk classify report.docx bundle.tar.gz notes.txt
  docwalk classify --extensions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := docwalk.New(a.cfg.WalkerOptions()...)
			if err != nil {
				return err
			}
			c := w.Classifier()
			out := cmd.OutOrStdout()

			if list {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, ext := range c.Extensions() {
					fmt.Fprintf(tw, "%s\t%s\n", ext, c.Classify("x"+ext))
				}
				return tw.Flush()
			}
			if len(args) == 0 {
				return errors.New("classify: at least one name is required")
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, name := range args {
				fmt.Fprintf(tw, "%s\t%s\n", name, c.Classify(strings.TrimSpace(name)))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&list, "extensions", false, "list the supported extensions")
	return cmd
}
