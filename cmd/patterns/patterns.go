// Package patterns implements the reference catalog listing subcommand.
package patterns

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/detection"
)

// Command returns the catalog listing command.
func Command(settings *conf.Settings) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the reference breathing pattern catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			library := detection.DefaultLibrary()
			if path := settings.Detection.CatalogPath; path != "" {
				var err error
				library, err = detection.LoadLibrary(path)
				if err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tDURATION\tVARIABILITY\tDESCRIPTION")
			for _, cat := range library.Categories() {
				if category != "" && string(cat) != category {
					continue
				}
				for _, p := range library.Patterns(cat) {
					fmt.Fprintf(w, "%s\t%s\t%.0fs\t%.2f\t%s\n",
						p.Name, p.Category, p.DurationSec, p.Variability, p.Description)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list templates in this category")
	return cmd
}
