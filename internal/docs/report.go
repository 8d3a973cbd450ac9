package docs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
)

// Report bundles what RenderMarkdown needs.
type Report struct {
	Summary  quality.Summary
	Schemas  map[string]*schema.TableSchema
	Metrics  map[string]*quality.Metrics
	Overview *Overview
}

// RenderMarkdown renders an offline report with one bracketed section per
// topic, tables in name order.
func RenderMarkdown(r Report) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Overview != nil && r.Overview.Title != "" {
		b.WriteString(fmt.Sprintf("Project: %s\n", r.Overview.Title))
		if r.Overview.Description != "" {
			b.WriteString(r.Overview.Description + "\n")
		}
	}
	b.WriteString(fmt.Sprintf("Tables: %d\n", r.Summary.TotalTables))
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Summary.TotalRows))
	b.WriteString(fmt.Sprintf("Average trust score: %.2f\n", r.Summary.AvgTrustScore))

	b.WriteString("\n[TRUST SCORES]\n")
	b.WriteString("| table | rows | trust | completeness | orphan % | outlier % | negative % | freshness |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- |\n")
	for _, n := range sortedNames(r.Schemas) {
		m := r.Metrics[n]
		if m == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
			safeCell(n), r.Schemas[n].RowCount, m.TrustScore, m.Completeness, m.OrphanRate, m.OutlierRate, m.NegativeRate, m.Freshness))
	}

	for _, n := range sortedNames(r.Schemas) {
		s := r.Schemas[n]
		b.WriteString(fmt.Sprintf("\n[TABLE %s]\n", n))
		b.WriteString(fmt.Sprintf("Rows: %d\n", s.RowCount))
		if len(s.PotentialKeys) > 0 {
			b.WriteString(fmt.Sprintf("Keys: %s\n", strings.Join(s.PotentialKeys, ", ")))
		}
		for _, fk := range s.PotentialForeignKeys {
			b.WriteString(fmt.Sprintf("Foreign key: %s → %s\n", fk.Column, strings.Join(fk.SuggestedTables, ", ")))
		}
		b.WriteString("Columns:\n")
		m := r.Metrics[n]
		for _, c := range s.Columns {
			b.WriteString(fmt.Sprintf("- %s: %s, %s (unique %d, null %d)", safeCell(c.Name), c.Classification, c.RawType, c.UniqueCount, c.NullCount))
			if m != nil {
				if st, ok := m.ColumnStats[c.Name]; ok {
					switch st.Kind {
					case quality.StatsNumeric:
						b.WriteString(fmt.Sprintf("; mean %.4g, std %.4g", st.Mean, st.Std))
					case quality.StatsTimestamp:
						b.WriteString(fmt.Sprintf("; %d unparseable", st.Skipped))
					}
				}
			}
			b.WriteString("\n")
		}
		if m == nil {
			continue
		}
		if len(m.SubScores) > 0 {
			keys := make([]string, 0, len(m.SubScores))
			for k := range m.SubScores {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString("Sub-scores:\n")
			for _, k := range keys {
				b.WriteString(fmt.Sprintf("  • %s: %.2f\n", k, m.SubScores[k]))
			}
		}
		if len(m.Issues) > 0 {
			b.WriteString("Issues:\n")
			for _, is := range m.Issues {
				b.WriteString(fmt.Sprintf("  • %s\n", is))
			}
		}
	}
	return b.String()
}

func safeCell(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
