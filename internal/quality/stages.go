package quality

import (
	"fmt"

	"github.com/KaramelBytes/insightdb-cli/internal/schema"
)

// completeness is non-null cells over all cells, as a score.
func (tc *tableCtx) completeness(m *Metrics) float64 {
	cells := tc.table.CellCount()
	if cells == 0 {
		m.Completeness = 100
		return 100
	}
	nulls := 0
	for _, c := range tc.table.Columns {
		nulls += c.NullCount()
	}
	ratio := float64(cells-nulls) / float64(cells)
	m.Completeness = round2(ratio * 100)
	if ratio < 0.9 {
		m.issue("High number of missing values")
	}
	return ratio * 100
}

// identifierHealth blends uniqueness (80%) and non-null share (20%) of the
// identifier columns. No identifier columns scores 100.
func (tc *tableCtx) identifierHealth(m *Metrics) float64 {
	ids := tc.schema.ColumnsOf(schema.Identifier)
	if len(ids) == 0 {
		m.Uniqueness = 100
		return 100
	}
	unique, nulls := 0, 0
	for _, c := range ids {
		unique += c.UniqueCount
		nulls += c.NullCount
	}
	denom := float64(len(ids) * tc.rows)
	uniq := float64(unique) / denom
	m.Uniqueness = round2(clamp(uniq*100, 0, 100))
	return uniq*80 + (1-float64(nulls)/denom)*20
}

// referentialIntegrity counts child rows whose foreign-key value is missing
// from the target table's first potential key. Only the first suggested
// target is checked; FKs whose target is unknown or keyless are skipped but
// still count in the denominator.
func (tc *tableCtx) referentialIntegrity(m *Metrics) float64 {
	fks := tc.schema.PotentialForeignKeys
	if len(fks) == 0 {
		return 100
	}
	totalOrphans := 0
	for _, fk := range fks {
		orphans, target, ok := tc.orphans(fk)
		if !ok || orphans == 0 {
			continue
		}
		totalOrphans += orphans
		rate := float64(orphans) / float64(tc.rows) * 100
		m.issue(fmt.Sprintf("%s%% orphans in %s (ref %s)", pct(rate), fk.Column, target))
	}
	rate := float64(totalOrphans) / float64(len(fks)*tc.rows)
	m.OrphanRate = round2(clamp(rate*100, 0, 100))
	return clamp((1-rate)*100, 0, 100)
}

func (tc *tableCtx) orphans(fk schema.ForeignKey) (int, string, bool) {
	if len(fk.SuggestedTables) == 0 {
		return 0, "", false
	}
	target := fk.SuggestedTables[0]
	parent, ok := tc.store.Table(target)
	if !ok {
		return 0, target, false
	}
	ps := tc.schemas[target]
	if ps == nil {
		return 0, target, false
	}
	pk, ok := ps.PrimaryKey()
	if !ok {
		return 0, target, false
	}
	parentCol, ok := parent.Column(pk)
	if !ok {
		return 0, target, false
	}
	child, ok := tc.table.Column(fk.Column)
	if !ok {
		return 0, target, false
	}

	keys := make(map[any]struct{}, len(parentCol.Values))
	for _, v := range parentCol.Values {
		if !v.IsNull() {
			keys[v.Key()] = struct{}{}
		}
	}
	n := 0
	for _, v := range child.Values {
		if v.IsNull() {
			continue
		}
		if _, found := keys[v.Key()]; !found {
			n++
		}
	}
	return n, target, true
}
