// Package policy holds the per-column validation rules the quality engine
// applies, and the providers that produce them.
package policy

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Range is an inclusive [Min, Max] bound. It serializes as a two-element list.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

func (r Range) MarshalJSON() ([]byte, error) { return json.Marshal([2]float64{r.Min, r.Max}) }

func (r Range) MarshalYAML() (any, error) { return []float64{r.Min, r.Max}, nil }

func (r *Range) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	got, ok := toRange(raw)
	if !ok {
		return fmt.Errorf("invalid range %s", b)
	}
	*r = got
	return nil
}

// SequenceRule requires the Before timestamp to be no later than After.
type SequenceRule struct {
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// ColumnRule is the validation rule set for one column.
type ColumnRule struct {
	// Unsigned is nil when the policy is silent; see IsUnsigned.
	Unsigned      *bool          `json:"is_unsigned,omitempty" yaml:"is_unsigned,omitempty"`
	Range         *Range         `json:"range,omitempty" yaml:"range,omitempty"`
	Regex         string         `json:"regex,omitempty" yaml:"regex,omitempty"`
	SequenceRules []SequenceRule `json:"sequence_rules,omitempty" yaml:"sequence_rules,omitempty"`
}

// IsUnsigned defaults to true when unspecified.
func (r ColumnRule) IsUnsigned() bool { return r.Unsigned == nil || *r.Unsigned }

// Policy maps table → column → rule. A nil or empty Policy is valid and
// means all defaults.
type Policy map[string]map[string]ColumnRule

// Empty returns a policy with no rules.
func Empty() Policy { return Policy{} }

// Column returns the rule for a column, or the zero rule.
func (p Policy) Column(table, column string) ColumnRule {
	return p[table][column]
}

// SequenceRules returns every sequence rule declared under any column of
// table, walking columns in sorted order.
func (p Policy) SequenceRules(table string) []SequenceRule {
	cols := p[table]
	names := make([]string, 0, len(cols))
	for c := range cols {
		names = append(names, c)
	}
	sort.Strings(names)
	var out []SequenceRule
	for _, c := range names {
		out = append(out, cols[c].SequenceRules...)
	}
	return out
}

// RuleCount is the number of column rules across all tables.
func (p Policy) RuleCount() int {
	n := 0
	for _, cols := range p {
		n += len(cols)
	}
	return n
}

// Bool is a helper for building rules in code.
func Bool(b bool) *bool { return &b }
