package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightdb-cli/internal/docs"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

var dashJSON bool

type dashboardView struct {
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	AvgTrustScore float64            `json:"avg_trust_score"`
	TotalTables   int                `json:"total_tables"`
	TotalRows     int                `json:"total_rows"`
	TrustScores   map[string]float64 `json:"trust_scores"`
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <dir> [more dirs...]",
	Short: "Show the dataset summary: average trust, tables and rows",
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
		sum, err := a.session.Dashboard()
		if err != nil {
			return err
		}
		ov, err := a.gen.Overview(cmd.Context(), snap.Schemas)
		if err != nil && !errors.Is(err, docs.ErrNoRuntime) {
			a.warnFallback(cmd.ErrOrStderr(), err)
		}
		view := dashboardView{
			Title:         ov.Title,
			Description:   ov.Description,
			AvgTrustScore: sum.AvgTrustScore,
			TotalTables:   sum.TotalTables,
			TotalRows:     sum.TotalRows,
			TrustScores:   snap.TrustScores(),
		}

		w := cmd.OutOrStdout()
		if dashJSON {
			b, err := utils.PrettyJSON(view)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			return nil
		}
		fmt.Fprintln(w, view.Title)
		if view.Description != "" {
			fmt.Fprintln(w, view.Description)
		}
		fmt.Fprintf(w, "Tables: %d  Rows: %d  Avg trust: %.2f\n", view.TotalTables, view.TotalRows, view.AvgTrustScore)
		names := make([]string, 0, len(view.TrustScores))
		for n := range view.TrustScores {
			names = append(names, n)
		}
		// lowest trust first
		sort.Slice(names, func(i, j int) bool {
			si, sj := view.TrustScores[names[i]], view.TrustScores[names[j]]
			if si != sj {
				return si < sj
			}
			return names[i] < names[j]
		})
		for _, n := range names {
			fmt.Fprintf(w, "  %-30s %6.2f\n", n, view.TrustScores[n])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().BoolVar(&dashJSON, "json", false, "print JSON")
}
