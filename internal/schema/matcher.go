package schema

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// TargetMatcher ranks candidate parent tables for a foreign-key column.
// Implementations must be deterministic and keep candidates in their given
// order when they rank equally.
type TargetMatcher interface {
	Match(column string, tables []string) []string
}

// MatcherFunc adapts a function to TargetMatcher.
type MatcherFunc func(column string, tables []string) []string

func (f MatcherFunc) Match(column string, tables []string) []string { return f(column, tables) }

// DefaultFillerTokens are stripped from table names before matching.
var DefaultFillerTokens = []string{"olist_", "_dataset"}

// DefaultMatcher is the substring heuristic with the default filler tokens.
func DefaultMatcher() TargetMatcher {
	return SubstringMatcher{FillerTokens: DefaultFillerTokens}
}

// SubstringMatcher suggests a table when the cleaned column name is a
// substring of the cleaned table name or vice versa.
type SubstringMatcher struct {
	FillerTokens []string
}

func (m SubstringMatcher) Match(column string, tables []string) []string {
	col := CleanColumn(column)
	var out []string
	for _, t := range tables {
		clean := CleanTable(t, m.FillerTokens)
		if strings.Contains(clean, col) || strings.Contains(col, clean) {
			out = append(out, t)
		}
	}
	return out
}

// InflectionMatcher compares singular forms: tables whose singular clean name
// equals the column stem rank first, plain substring matches follow.
type InflectionMatcher struct {
	FillerTokens []string
}

func (m InflectionMatcher) Match(column string, tables []string) []string {
	col := inflection.Singular(CleanColumn(column))
	var exact, partial []string
	for _, t := range tables {
		clean := CleanTable(t, m.FillerTokens)
		singular := inflection.Singular(clean)
		switch {
		case singular == col:
			exact = append(exact, t)
		case strings.Contains(clean, col) || strings.Contains(col, singular):
			partial = append(partial, t)
		}
	}
	return append(exact, partial...)
}

// MatcherByName resolves a configured matcher name ("substring", "inflection").
func MatcherByName(name string, fillers []string) (TargetMatcher, bool) {
	if fillers == nil {
		fillers = DefaultFillerTokens
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "substring":
		return SubstringMatcher{FillerTokens: fillers}, true
	case "inflection":
		return InflectionMatcher{FillerTokens: fillers}, true
	default:
		return nil, false
	}
}

// CleanTable strips filler tokens from a table name.
func CleanTable(name string, fillers []string) string {
	for _, f := range fillers {
		if f != "" {
			name = strings.ReplaceAll(name, f, "")
		}
	}
	return name
}

// CleanColumn strips the identifier suffix from a column name.
func CleanColumn(name string) string {
	return strings.TrimSuffix(name, "_id")
}
