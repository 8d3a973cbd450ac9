// Package schema infers column roles, candidate keys and candidate foreign
// keys from a tabular store.
package schema

import (
	"strings"

	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
)

// Analyzer derives a TableSchema for every table in a store.
type Analyzer struct {
	// Matcher suggests foreign-key target tables. Nil means DefaultMatcher().
	Matcher TargetMatcher
}

// NewAnalyzer returns an analyzer using the given matcher (nil for the default).
func NewAnalyzer(m TargetMatcher) *Analyzer {
	return &Analyzer{Matcher: m}
}

// Analyze returns one schema per table, keyed by table name. Output depends
// only on the store contents.
func (a *Analyzer) Analyze(store *tabular.Store) map[string]*TableSchema {
	matcher := a.Matcher
	if matcher == nil {
		matcher = DefaultMatcher()
	}
	names := store.Names()
	out := make(map[string]*TableSchema, len(names))
	for _, name := range names {
		t, _ := store.Table(name)
		others := make([]string, 0, len(names)-1)
		for _, n := range names {
			if n != name {
				others = append(others, n)
			}
		}
		out[name] = analyzeTable(t, others, matcher)
	}
	return out
}

func analyzeTable(t *tabular.Table, others []string, matcher TargetMatcher) *TableSchema {
	rows := t.RowCount()
	ts := &TableSchema{
		Name:                 t.Name,
		RowCount:             rows,
		Columns:              make([]ColumnSchema, 0, len(t.Columns)),
		PotentialKeys:        []string{},
		PotentialForeignKeys: []ForeignKey{},
	}
	for _, col := range t.Columns {
		cs := ColumnSchema{
			Name:        col.Name,
			RawType:     col.Type,
			UniqueCount: col.DistinctCount(),
			NullCount:   col.NullCount(),
		}
		cs.Classification = Classify(col.Name, col.Type, cs.UniqueCount)
		ts.Columns = append(ts.Columns, cs)

		if cs.Classification != Identifier {
			continue
		}
		if cs.UniqueCount == rows && cs.NullCount == 0 {
			ts.PotentialKeys = append(ts.PotentialKeys, col.Name)
			continue
		}
		if targets := matcher.Match(col.Name, others); len(targets) > 0 {
			ts.PotentialForeignKeys = append(ts.PotentialForeignKeys, ForeignKey{
				Column:          col.Name,
				SuggestedTables: targets,
			})
		}
	}
	return ts
}

// Classify applies the classification rules in priority order; first match wins.
func Classify(name, rawType string, distinct int) Classification {
	lower := strings.ToLower(name)
	switch {
	case name == "id" || strings.HasSuffix(name, "_id"):
		return Identifier
	case strings.Contains(lower, "date") || strings.Contains(lower, "time") || rawType == tabular.TypeDatetime:
		return Timestamp
	case tabular.IsNumericType(rawType):
		return Numeric
	case rawType == tabular.TypeText && distinct < CategoricalLimit:
		return Categorical
	default:
		return Other
	}
}
