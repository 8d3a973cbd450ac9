package quality

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
)

const rareShare = 0.01

// rareCategories flags categorical values below 1% of the non-null cells.
// Informational only.
func (tc *tableCtx) rareCategories(m *Metrics) {
	for _, cs := range tc.schema.ColumnsOf(schema.Categorical) {
		col, ok := tc.table.Column(cs.Name)
		if !ok {
			continue
		}
		counts := map[any]int{}
		total := 0
		for _, v := range col.Values {
			if v.IsNull() {
				continue
			}
			counts[v.Key()]++
			total++
		}
		if total == 0 {
			continue
		}
		rare := 0
		for _, n := range counts {
			if float64(n)/float64(total) < rareShare {
				rare++
			}
		}
		if rare > 0 {
			m.issue(fmt.Sprintf("%d rare categories in %s (<1%% frequency)", rare, cs.Name))
		}
	}
}

// patternChecks applies policy regexes to text columns. Informational only;
// invalid patterns are logged and ignored.
func (tc *tableCtx) patternChecks(m *Metrics) {
	rules := tc.policy[tc.table.Name]
	names := make([]string, 0, len(rules))
	for c, r := range rules {
		if r.Regex != "" {
			names = append(names, c)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		col, ok := tc.table.Column(name)
		if !ok || col.Type != tabular.TypeText {
			continue
		}
		pattern := rules[name].Regex
		re, err := regexp.Compile(pattern)
		if err != nil {
			tc.logger.Warn("ignoring invalid policy regex", zap.String("column", name), zap.Error(err))
			continue
		}
		bad := 0
		for _, v := range col.Values {
			if !v.IsNull() && !re.MatchString(v.String()) {
				bad++
			}
		}
		if bad > 0 {
			m.issue(fmt.Sprintf("Pattern mismatch in %s (%d values do not match %s)", name, bad, pattern))
		}
	}
}

// freshness compares the table's newest timestamp to the dataset's newest.
func (tc *tableCtx) freshness(m *Metrics, globalMax time.Time) float64 {
	var tableMax time.Time
	found := false
	for _, cs := range tc.schema.ColumnsOf(schema.Timestamp) {
		col, ok := tc.table.Column(cs.Name)
		if !ok {
			continue
		}
		times := tc.parseTimes(m, col)
		for _, t := range times {
			if t != nil && (!found || t.After(tableMax)) {
				tableMax = *t
				found = true
			}
		}
	}
	score := 50.0
	if found {
		score = freshnessScore(globalMax.Sub(tableMax))
	}
	m.Freshness = round2(score)
	return score
}

func freshnessScore(gap time.Duration) float64 {
	days := int(gap.Hours() / 24)
	switch {
	case days < 30:
		return 100
	case days > 365:
		return 20
	default:
		return 100 - float64(days)/365*80
	}
}

// sequencePenalty counts rows whose "before" timestamp is later than the
// "after" one, for every rule whose columns both exist. Capped at 20.
func (tc *tableCtx) sequencePenalty(m *Metrics) float64 {
	penalty := 0.0
	for _, rule := range tc.policy.SequenceRules(tc.table.Name) {
		bc, ok1 := tc.table.Column(rule.Before)
		ac, ok2 := tc.table.Column(rule.After)
		if !ok1 || !ok2 {
			continue
		}
		before := tc.parseTimes(m, bc)
		after := tc.parseTimes(m, ac)
		violations := 0
		for i := range before {
			if before[i] != nil && after[i] != nil && before[i].After(*after[i]) {
				violations++
			}
		}
		if violations > 0 {
			m.issue(fmt.Sprintf("Logic Error: %s appears AFTER %s in %d rows", rule.Before, rule.After, violations))
			penalty += float64(violations) / float64(tc.rows) * 10
		}
	}
	if penalty > maxSequencePenalty {
		penalty = maxSequencePenalty
	}
	return penalty
}

// parseTimes resolves every cell as a timestamp (nil when null or
// unparseable) and records parse skips in the column stats.
func (tc *tableCtx) parseTimes(m *Metrics, col *tabular.Column) []*time.Time {
	out := make([]*time.Time, len(col.Values))
	parsed, skipped := 0, 0
	for i, v := range col.Values {
		if v.IsNull() {
			continue
		}
		t, ok := v.Timestamp()
		if !ok {
			skipped++
			continue
		}
		out[i] = &t
		parsed++
	}
	if skipped > 0 {
		if _, exists := m.ColumnStats[col.Name]; !exists {
			m.ColumnStats[col.Name] = ColumnStats{Kind: StatsTimestamp, Count: parsed, Skipped: skipped}
		}
	}
	return out
}

// globalMaxTimestamp is the newest parseable timestamp across the
// timestamp-classified columns of all tables.
func globalMaxTimestamp(store *tabular.Store, schemas map[string]*schema.TableSchema) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, name := range store.Names() {
		ts := schemas[name]
		if ts == nil {
			continue
		}
		t, _ := store.Table(name)
		for _, cs := range ts.ColumnsOf(schema.Timestamp) {
			col, ok := t.Column(cs.Name)
			if !ok {
				continue
			}
			for _, v := range col.Values {
				if tm, ok := v.Timestamp(); ok && (!found || tm.After(latest)) {
					latest = tm
					found = true
				}
			}
		}
	}
	return latest, found
}
