package quality

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/insightdb-cli/internal/policy"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	e := NewEngine(zap.NewNop())
	e.Now = func() time.Time { return fixedNow }
	return e
}

func records(n int, f func(i int) []string) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func table(name string, header []string, rows [][]string) *tabular.Table {
	return tabular.FromRecords(name, header, rows, tabular.DefaultOptions())
}

func run(t *testing.T, pol policy.Policy, tables ...*tabular.Table) (map[string]*Metrics, map[string]*schema.TableSchema, *tabular.Store) {
	t.Helper()
	store := tabular.NewStore(tables...)
	schemas := schema.NewAnalyzer(nil).Analyze(store)
	return testEngine().Compute(store, schemas, pol), schemas, store
}

func TestCompletenessFormula(t *testing.T) {
	tbl := table("t", []string{"a", "b"}, [][]string{{"1", ""}, {"2", "x"}, {"", "y"}, {"4", "z"}})
	m, _, _ := run(t, nil, tbl)
	got := m["t"]
	assert.Equal(t, 75.0, got.Completeness)
	assert.Equal(t, 75.0, got.SubScores[ScoreCompleteness])
	assert.Contains(t, got.Issues, "High number of missing values")
	assert.GreaterOrEqual(t, got.Completeness, 0.0)
	assert.LessOrEqual(t, got.Completeness, 100.0)
}

func TestOrphanRateScenario(t *testing.T) {
	orders := table("orders", []string{"order_id"}, records(90, func(i int) []string { return []string{fmt.Sprint(i + 1)} }))
	items := table("order_items", []string{"order_id"}, records(100, func(i int) []string { return []string{fmt.Sprint(i + 1)} }))
	store := tabular.NewStore(orders, items)
	schemas := schema.NewAnalyzer(nil).Analyze(store)
	// order_items.order_id is unique here, so declare the relationship explicitly.
	schemas["order_items"].PotentialKeys = []string{}
	schemas["order_items"].PotentialForeignKeys = []schema.ForeignKey{{Column: "order_id", SuggestedTables: []string{"orders"}}}

	m := testEngine().Compute(store, schemas, nil)["order_items"]
	assert.Equal(t, 10.0, m.OrphanRate)
	assert.Equal(t, 90.0, m.SubScores[ScoreReferentialIntegrity])
	assert.Contains(t, m.Issues, "10.0% orphans in order_id (ref orders)")
}

func TestOrphanRateFromInferredForeignKey(t *testing.T) {
	orders := table("olist_orders_dataset", []string{"order_id"}, records(90, func(i int) []string { return []string{fmt.Sprint(i + 1)} }))
	items := table("olist_order_items_dataset", []string{"order_id", "price"}, records(200, func(i int) []string {
		return []string{fmt.Sprint(i%100 + 1), "5"}
	}))
	m, schemas, _ := run(t, nil, orders, items)
	require.Len(t, schemas["olist_order_items_dataset"].PotentialForeignKeys, 1)
	got := m["olist_order_items_dataset"]
	assert.Equal(t, 10.0, got.OrphanRate)
	assert.Contains(t, got.Issues, "10.0% orphans in order_id (ref olist_orders_dataset)")
}

func TestForeignKeyToKeylessTargetIsSkipped(t *testing.T) {
	parent := table("customers", []string{"customer_id"}, [][]string{{"1"}, {"1"}})
	child := table("orders", []string{"customer_id"}, [][]string{{"9"}, {"9"}})
	m, schemas, _ := run(t, nil, parent, child)
	require.Len(t, schemas["orders"].PotentialForeignKeys, 1)
	assert.Equal(t, 0.0, m["orders"].OrphanRate)
	assert.Equal(t, 100.0, m["orders"].SubScores[ScoreReferentialIntegrity])
}

func priceTable(negatives int) *tabular.Table {
	return table("products", []string{"product_id", "price"}, records(50, func(i int) []string {
		v := i + 1
		if i >= 50-negatives {
			v = -(50 - i)
		}
		return []string{fmt.Sprint(i + 1), fmt.Sprint(v)}
	}))
}

func TestNegativeRateScenario(t *testing.T) {
	pol := policy.Policy{"products": {"price": {Unsigned: policy.Bool(true)}}}
	m, _, _ := run(t, pol, priceTable(3))
	got := m["products"]
	assert.Equal(t, 6.0, got.NegativeRate)
	assert.Equal(t, 0.0, got.OutlierRate)
	assert.Contains(t, got.Issues, "Negative values in price (expected unsigned)")
	assert.Equal(t, 97.0, got.SubScores[ScoreNumericSanity])

	stats := got.ColumnStats["price"]
	assert.Equal(t, StatsNumeric, stats.Kind)
	assert.Equal(t, 50, stats.Count)
	assert.Zero(t, stats.Skipped)

	// Without a policy the column is still assumed unsigned.
	m, _, _ = run(t, nil, priceTable(3))
	assert.Equal(t, 6.0, m["products"].NegativeRate)

	signed := policy.Policy{"products": {"price": {Unsigned: policy.Bool(false)}}}
	m, _, _ = run(t, signed, priceTable(3))
	assert.Equal(t, 0.0, m["products"].NegativeRate)
	assert.NotContains(t, m["products"].Issues, "Negative values in price (expected unsigned)")
}

func TestZeroRowTable(t *testing.T) {
	m, _, _ := run(t, nil, table("empty", []string{"id", "amount", "created_at"}, nil))
	got := m["empty"]
	require.NotNil(t, got)
	assert.Equal(t, &Metrics{
		SubScores:   map[string]float64{},
		Issues:      []string{},
		ColumnStats: map[string]ColumnStats{},
	}, got)
}

func TestLowTrustIsCritical(t *testing.T) {
	m, _, _ := run(t, nil, table("bad", []string{"ref_id", "value"}, records(10, func(int) []string { return []string{"", ""} })))
	got := m["bad"]
	assert.Equal(t, 47.5, got.TrustScore)
	assert.Equal(t, []string{"High number of missing values", "Critical: Low overall trust score."}, got.Issues)
	assert.Equal(t, 0.0, got.Uniqueness)
	assert.Equal(t, 50.0, got.Freshness)
}

func TestCleanTableScoresFull(t *testing.T) {
	tbl := table("shipments", []string{"placed_date", "shipped_date"}, records(10, func(i int) []string {
		return []string{fmt.Sprintf("2024-01-%02d", i+1), fmt.Sprintf("2024-02-%02d", i+1)}
	}))
	m, _, _ := run(t, nil, tbl)
	got := m["shipments"]
	assert.Equal(t, 100.0, got.TrustScore)
	assert.Equal(t, 100.0, got.Uniqueness)
	assert.Empty(t, got.Issues)
	assert.Equal(t, map[string]float64{
		ScoreCompleteness:         100,
		ScoreIdentifierHealth:     100,
		ScoreReferentialIntegrity: 100,
		ScoreNumericSanity:        100,
		ScoreFreshness:            100,
	}, got.SubScores)
}

func TestSequencePenaltyIsCapped(t *testing.T) {
	tbl := table("shipments", []string{"placed_date", "shipped_date"}, records(10, func(i int) []string {
		return []string{fmt.Sprintf("2024-02-%02d", i+1), fmt.Sprintf("2024-01-%02d", i+1)}
	}))
	rule := []policy.SequenceRule{{Before: "placed_date", After: "shipped_date"}}
	pol := policy.Policy{"shipments": {
		"placed_date":  {SequenceRules: rule},
		"shipped_date": {SequenceRules: rule},
		"other":        {SequenceRules: rule},
	}}
	m, _, _ := run(t, pol, tbl)
	got := m["shipments"]
	assert.Equal(t, 80.0, got.TrustScore)
	assert.Contains(t, got.Issues, "Logic Error: placed_date appears AFTER shipped_date in 10 rows")

	one := policy.Policy{"shipments": {"placed_date": {SequenceRules: rule}}}
	m, _, _ = run(t, one, tbl)
	assert.Equal(t, 90.0, m["shipments"].TrustScore)
}

func TestSequenceRuleSkipsUnparseableValues(t *testing.T) {
	tbl := table("shipments", []string{"placed_date", "shipped_date"}, [][]string{
		{"2024-01-05", "2024-01-01"},
		{"2024-01-05", "unknown"},
		{"2024-01-05", "2024-01-09"},
		{"2024-01-05", ""},
	})
	pol := policy.Policy{"shipments": {"placed_date": {SequenceRules: []policy.SequenceRule{{Before: "placed_date", After: "shipped_date"}}}}}
	m, _, _ := run(t, pol, tbl)
	got := m["shipments"]
	assert.Contains(t, got.Issues, "Logic Error: placed_date appears AFTER shipped_date in 1 rows")
	assert.Equal(t, ColumnStats{Kind: StatsTimestamp, Count: 2, Skipped: 1}, got.ColumnStats["shipped_date"])

	// Rules naming missing columns are ignored.
	missing := policy.Policy{"shipments": {"x": {SequenceRules: []policy.SequenceRule{{Before: "nope", After: "shipped_date"}}}}}
	m, _, _ = run(t, missing, tbl)
	for _, is := range m["shipments"].Issues {
		assert.NotContains(t, is, "Logic Error")
	}
}

func TestSequenceRuleReadsSlashDatesMonthFirst(t *testing.T) {
	tbl := table("orders", []string{"purchase_date", "delivered_date"}, [][]string{
		{"03/04/2024", "03/20/2024"},
		{"01/02/2024", "01/15/2024"},
	})
	pol := policy.Policy{"orders": {"purchase_date": {SequenceRules: []policy.SequenceRule{{Before: "purchase_date", After: "delivered_date"}}}}}
	m, _, _ := run(t, pol, tbl)
	for _, is := range m["orders"].Issues {
		assert.NotContains(t, is, "Logic Error")
	}
}

func TestFreshness(t *testing.T) {
	newest := table("a", []string{"created_date"}, [][]string{{"2020-01-31"}, {"2019-06-01"}})
	month := table("b", []string{"created_date"}, [][]string{{"2020-01-01"}})
	old := table("c", []string{"created_date"}, [][]string{{"2019-01-01"}})
	none := table("d", []string{"amount"}, [][]string{{"1"}})
	m, _, _ := run(t, nil, newest, month, old, none)

	assert.Equal(t, 100.0, m["a"].Freshness)
	assert.Equal(t, 93.42, m["b"].Freshness)
	assert.Equal(t, 20.0, m["c"].Freshness)
	assert.Equal(t, 50.0, m["d"].Freshness)
}

func TestFreshnessScoreDecreasesWithGap(t *testing.T) {
	day := 24 * time.Hour
	assert.Equal(t, 100.0, freshnessScore(0))
	assert.Equal(t, 100.0, freshnessScore(29*day))
	prev := 100.0
	for d := 0; d <= 800; d += 7 {
		s := freshnessScore(time.Duration(d) * day)
		assert.LessOrEqual(t, s, prev, "day %d", d)
		assert.GreaterOrEqual(t, s, 20.0)
		prev = s
	}
	assert.Equal(t, 20.0, freshnessScore(366*day))
}

func TestTrustMonotoneInNegatives(t *testing.T) {
	prev := 101.0
	for k := 10; k <= 40; k += 5 {
		tbl := table("t", []string{"row_id", "amount"}, records(50, func(i int) []string {
			v := "10"
			if i < k {
				v = "-10"
			}
			return []string{fmt.Sprint(i), v}
		}))
		m, _, _ := run(t, nil, tbl)
		got := m["t"]
		assert.Zero(t, got.OutlierRate, "k=%d", k)
		assert.Less(t, got.TrustScore, prev, "k=%d", k)
		prev = got.TrustScore
	}
}

func TestOutliersAndRange(t *testing.T) {
	tbl := table("t", []string{"amount"}, records(100, func(i int) []string {
		if i < 6 {
			return []string{"100"}
		}
		return []string{"0"}
	}))
	m, _, _ := run(t, nil, tbl)
	got := m["t"]
	assert.Equal(t, 6.0, got.OutlierRate)
	assert.Contains(t, got.Issues, "High outlier rate in amount (6.0%)")

	pol := policy.Policy{"t": {"amount": {Range: &policy.Range{Min: 0, Max: 50}}}}
	m, _, _ = run(t, pol, tbl)
	got2 := m["t"]
	assert.Equal(t, 12.0, got2.OutlierRate)
	assert.Contains(t, got2.Issues, "Value range violation in amount (expected [0, 50])")
	assert.Less(t, got2.TrustScore, got.TrustScore)
}

func TestRareCategories(t *testing.T) {
	tbl := table("t", []string{"status"}, records(101, func(i int) []string {
		if i == 0 {
			return []string{"weird"}
		}
		return []string{"ok"}
	}))
	m, _, _ := run(t, nil, tbl)
	assert.Contains(t, m["t"].Issues, "1 rare categories in status (<1% frequency)")
}

func TestPatternChecks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tbl := table("users", []string{"email", "nickname"}, records(60, func(i int) []string {
		if i == 0 {
			return []string{"broken", fmt.Sprint("n", i)}
		}
		return []string{fmt.Sprintf("u%d@example.com", i), fmt.Sprint("n", i)}
	}))
	store := tabular.NewStore(tbl)
	schemas := schema.NewAnalyzer(nil).Analyze(store)
	pol := policy.Policy{"users": {
		"email":    {Regex: `^[^@]+@[^@]+$`},
		"nickname": {Regex: `(`},
	}}
	e := NewEngine(zap.New(core))
	e.Now = func() time.Time { return fixedNow }
	m := e.Compute(store, schemas, pol)["users"]

	assert.Contains(t, m.Issues, "Pattern mismatch in email (1 values do not match ^[^@]+@[^@]+$)")
	// Pattern issues are informational; with no timestamps freshness is neutral.
	assert.Equal(t, 92.5, m.TrustScore)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ignoring invalid policy regex", logs.All()[0].Message)
}

func TestComputeIsDeterministic(t *testing.T) {
	orders := table("olist_orders_dataset", []string{"order_id", "purchase_date"}, records(90, func(i int) []string {
		return []string{fmt.Sprint(i + 1), fmt.Sprintf("2018-%02d-01", i%12+1)}
	}))
	items := table("olist_order_items_dataset", []string{"order_id", "price", "status"}, records(200, func(i int) []string {
		return []string{fmt.Sprint(i%100 + 1), fmt.Sprint(i - 3), []string{"a", "b"}[i%2]}
	}))
	store := tabular.NewStore(orders, items)
	schemas := schema.NewAnalyzer(nil).Analyze(store)
	e := testEngine()
	first := e.Compute(store, schemas, nil)
	second := e.Compute(store, schemas, nil)
	assert.Equal(t, first, second)
}

func TestSummarize(t *testing.T) {
	m, _, store := run(t, nil,
		table("a", []string{"x"}, [][]string{{"1"}, {"2"}}),
		table("b", []string{"ref_id", "value"}, records(10, func(int) []string { return []string{"", ""} })),
	)
	s := Summarize(m, store)
	assert.Equal(t, 2, s.TotalTables)
	assert.Equal(t, 12, s.TotalRows)
	assert.Equal(t, round2((m["a"].TrustScore+m["b"].TrustScore)/2), s.AvgTrustScore)

	assert.Equal(t, Summary{}, Summarize(nil, nil))
}
