package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	explTable  string
	explColumn string
	explRow    int
)

var explainCmd = &cobra.Command{
	Use:   "explain <dir>",
	Short: "Explain whether a single value looks like a data error",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if explTable == "" || explColumn == "" {
			return errors.New("--table and --column are required")
		}
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		snap, err := a.load(cmd.Context(), args)
		if err != nil {
			return err
		}
		view, err := snap.Table(explTable)
		if err != nil {
			return err
		}
		if _, ok := view.Table.Column(explColumn); !ok {
			return fmt.Errorf("column %q not found in %s", explColumn, explTable)
		}
		row, err := view.Table.Row(explRow)
		if err != nil {
			return err
		}
		value := row[explColumn]

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s.%s row %d = %v\n", explTable, explColumn, explRow, value)
		if st, ok := view.Metrics.ColumnStats[explColumn]; ok && st.Std > 0 {
			if f, ok := value.(float64); ok {
				fmt.Fprintf(w, "z-score %.2f (mean %.2f, std %.2f)\n", (f-st.Mean)/st.Std, st.Mean, st.Std)
			}
		}
		reason, err := a.gen.ExplainOutlier(cmd.Context(), explTable, explColumn, row, value)
		a.warnFallback(cmd.ErrOrStderr(), err)
		fmt.Fprintln(w, reason)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
	explainCmd.Flags().StringVarP(&explTable, "table", "t", "", "table name")
	explainCmd.Flags().StringVarP(&explColumn, "column", "c", "", "column name")
	explainCmd.Flags().IntVarP(&explRow, "row", "r", 0, "zero-based row index")
}
