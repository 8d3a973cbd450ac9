package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightdb-cli/internal/docs"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

var (
	docsTable string
	docsJSON  bool
)

var docsCmd = &cobra.Command{
	Use:   "docs <dir> [more dirs...]",
	Short: "Write dataset documentation or a single-table summary",
	Long: `Generates documentation with the configured model. Without a provider, or
when the model call fails, an offline summary is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		snap, err := a.load(cmd.Context(), args)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		if docsTable != "" {
			view, err := snap.Table(docsTable)
			if err != nil {
				return err
			}
			sum, genErr := a.gen.TableSummary(cmd.Context(), view.Schema, view.Metrics)
			a.warnFallback(cmd.ErrOrStderr(), genErr)
			if docsJSON {
				return printJSON(w, sum)
			}
			fmt.Fprintf(w, "# %s\n\n%s\n", sum.Table, sum.Summary)
			if len(sum.Risks) > 0 {
				fmt.Fprintln(w, "\n## Risks")
				for _, r := range sum.Risks {
					fmt.Fprintf(w, "- %s\n", r)
				}
			}
			return nil
		}

		doc, genErr := a.gen.Documentation(cmd.Context(), snap.Schemas, snap.Metrics)
		a.warnFallback(cmd.ErrOrStderr(), genErr)
		if docsJSON {
			return printJSON(w, doc)
		}
		printDocumentation(w, doc)
		return nil
	},
}

func printDocumentation(w io.Writer, d docs.Documentation) {
	fmt.Fprintf(w, "# %s\n", d.Title)
	section := func(title, body string) {
		if strings.TrimSpace(body) != "" {
			fmt.Fprintf(w, "\n## %s\n\n%s\n", title, body)
		}
	}
	section("Executive summary", d.ExecutiveSummary)
	section("Architecture", d.ArchitectureOverview)
	if len(d.KeyEntities) > 0 {
		fmt.Fprintln(w, "\n## Key entities")
		for _, e := range d.KeyEntities {
			fmt.Fprintf(w, "- **%s**: %s\n", e.Name, e.Description)
		}
	}
	if len(d.BusinessUtility) > 0 {
		fmt.Fprintln(w, "\n## Business utility")
		for _, u := range d.BusinessUtility {
			fmt.Fprintf(w, "- %s\n", u)
		}
	}
	section("Data quality", d.DataQualityNarrative)
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringVarP(&docsTable, "table", "t", "", "summarize only this table")
	docsCmd.Flags().BoolVar(&docsJSON, "json", false, "print JSON")
}
