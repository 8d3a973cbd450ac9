package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema <dir> [more dirs...]",
	Short: "Show inferred column roles, keys and foreign keys",
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
		w := cmd.OutOrStdout()
		if schemaJSON {
			b, err := utils.PrettyJSON(snap.Schemas)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			return nil
		}
		for _, name := range snap.Store.Names() {
			printSchema(w, snap.Schemas[name])
		}
		return nil
	},
}

func printSchema(w io.Writer, s *schema.TableSchema) {
	fmt.Fprintf(w, "%s (%d rows)\n", s.Name, s.RowCount)
	width := 0
	for _, c := range s.Columns {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}
	for _, c := range s.Columns {
		marker := " "
		if s.IsKey(c.Name) {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s %-*s  %-11s  %-8s  unique=%d nulls=%d\n",
			marker, width, c.Name, c.Classification, c.RawType, c.UniqueCount, c.NullCount)
	}
	fks := append([]schema.ForeignKey(nil), s.PotentialForeignKeys...)
	sort.Slice(fks, func(i, j int) bool { return fks[i].Column < fks[j].Column })
	for _, fk := range fks {
		fmt.Fprintf(w, "  → %s references %s\n", fk.Column, strings.Join(fk.SuggestedTables, ", "))
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "print JSON")
}
