package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

var (
	qualTable string
	qualJSON  bool
)

var qualityCmd = &cobra.Command{
	Use:   "quality <dir> [more dirs...]",
	Short: "Show quality metrics and trust scores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		snap, err := a.load(cmd.Context(), args)
		if err != nil {
			return err
		}
		metrics := snap.Metrics
		if qualTable != "" {
			view, err := snap.Table(qualTable)
			if err != nil {
				return err
			}
			metrics = map[string]*quality.Metrics{qualTable: view.Metrics}
		}
		w := cmd.OutOrStdout()
		if qualJSON {
			b, err := utils.PrettyJSON(metrics)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			return nil
		}
		for _, name := range snap.Store.Names() {
			if m, ok := metrics[name]; ok {
				printMetrics(w, name, m)
			}
		}
		return nil
	},
}

func printMetrics(w io.Writer, name string, m *quality.Metrics) {
	fmt.Fprintf(w, "%s: trust %.2f\n", name, m.TrustScore)
	fmt.Fprintf(w, "  completeness %.2f  uniqueness %.2f  freshness %.2f\n", m.Completeness, m.Uniqueness, m.Freshness)
	fmt.Fprintf(w, "  orphan %.2f%%  outlier %.2f%%  negative %.2f%%\n", m.OrphanRate, m.OutlierRate, m.NegativeRate)
	keys := make([]string, 0, len(m.SubScores))
	for k := range m.SubScores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  · %s %.2f\n", k, m.SubScores[k])
	}
	for _, is := range m.Issues {
		fmt.Fprintf(w, "  ⚠ %s\n", is)
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(qualityCmd)
	qualityCmd.Flags().StringVarP(&qualTable, "table", "t", "", "only this table")
	qualityCmd.Flags().BoolVar(&qualJSON, "json", false, "print JSON")
}
