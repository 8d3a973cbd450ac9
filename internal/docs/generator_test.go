package docs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/insightdb-cli/internal/ai"
	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
)

type fakeRuntime struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.prompts = append(f.prompts, req.Messages[0].Content)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Text: f.reply}, nil
}

func sampleSchemas() map[string]*schema.TableSchema {
	return map[string]*schema.TableSchema{
		"olist_orders_dataset": {
			Name: "olist_orders_dataset", RowCount: 90,
			Columns:              []schema.ColumnSchema{{Name: "order_id", RawType: "int64", Classification: schema.Identifier, UniqueCount: 90}},
			PotentialKeys:        []string{"order_id"},
			PotentialForeignKeys: []schema.ForeignKey{},
		},
		"olist_order_items_dataset": {
			Name: "olist_order_items_dataset", RowCount: 200,
			Columns: []schema.ColumnSchema{
				{Name: "order_id", RawType: "int64", Classification: schema.Identifier, UniqueCount: 100},
				{Name: "price", RawType: "float64", Classification: schema.Numeric, UniqueCount: 40},
			},
			PotentialKeys:        []string{},
			PotentialForeignKeys: []schema.ForeignKey{{Column: "order_id", SuggestedTables: []string{"olist_orders_dataset"}}},
		},
	}
}

func sampleMetrics() map[string]*quality.Metrics {
	return map[string]*quality.Metrics{
		"olist_orders_dataset": {TrustScore: 92.5, Completeness: 100, SubScores: map[string]float64{"freshness": 50}, Issues: []string{}, ColumnStats: map[string]quality.ColumnStats{}},
		"olist_order_items_dataset": {
			TrustScore: 88.1, Completeness: 100, OrphanRate: 10,
			SubScores:   map[string]float64{"referential_integrity": 90},
			Issues:      []string{"10.0% orphans in order_id (ref olist_orders_dataset)"},
			ColumnStats: map[string]quality.ColumnStats{"price": {Kind: quality.StatsNumeric, Mean: 12.5, Std: 3, Count: 200}},
		},
	}
}

func TestOverviewFromModel(t *testing.T) {
	rt := &fakeRuntime{reply: "```json\n{\"title\":\"E-commerce Audit\",\"description\":\"d\",\"context\":\"c\",\"value\":[\"a\"],\"key_entities\":[\"Orders\"]}\n```"}
	g := NewGenerator(rt, "gpt-4o-mini", 0, nil)
	ov, err := g.Overview(context.Background(), sampleSchemas())
	require.NoError(t, err)
	assert.Equal(t, "E-commerce Audit", ov.Title)
	assert.Equal(t, []string{"Orders"}, ov.KeyEntities)
	require.Len(t, rt.prompts, 1)
	assert.Contains(t, rt.prompts[0], "Total records: 290")
	assert.Contains(t, rt.prompts[0], `"table": "olist_order_items_dataset"`)
}

func TestOverviewFallback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := NewGenerator(&fakeRuntime{err: errors.New("boom")}, "m", 0, zap.New(core))
	ov, err := g.Overview(context.Background(), sampleSchemas())
	assert.Error(t, err)
	assert.Equal(t, "InsightDB Intelligence", ov.Title)
	assert.Equal(t, []string{"Order_items", "Orders"}, ov.KeyEntities)
	assert.Contains(t, ov.Description, "boom")
	assert.Equal(t, 1, logs.Len())

	// No runtime at all falls back quietly.
	core, logs = observer.New(zap.WarnLevel)
	g = NewGenerator(nil, "m", 0, zap.New(core))
	_, err = g.Overview(context.Background(), sampleSchemas())
	assert.ErrorIs(t, err, ErrNoRuntime)
	assert.Zero(t, logs.Len())
}

func TestOverviewRejectsUntitledReply(t *testing.T) {
	g := NewGenerator(&fakeRuntime{reply: `{"description":"x"}`}, "m", 0, nil)
	ov, err := g.Overview(context.Background(), sampleSchemas())
	assert.Error(t, err)
	assert.Equal(t, "InsightDB Intelligence", ov.Title)
}

func TestDocumentation(t *testing.T) {
	rt := &fakeRuntime{reply: `{"title":"Report","executive_summary":"s","key_entities":[{"name":"Order","description":"a purchase"}]}`}
	g := NewGenerator(rt, "m", 0, nil)
	doc, err := g.Documentation(context.Background(), sampleSchemas(), sampleMetrics())
	require.NoError(t, err)
	assert.Equal(t, "Report", doc.Title)
	assert.Equal(t, []Entity{{Name: "Order", Description: "a purchase"}}, doc.KeyEntities)
	assert.Contains(t, rt.prompts[0], "olist_order_items_dataset: trust 88.10")

	doc, err = NewGenerator(nil, "m", 0, nil).Documentation(context.Background(), sampleSchemas(), sampleMetrics())
	assert.Error(t, err)
	assert.Equal(t, "Dataset Documentation Report", doc.Title)
}

func TestTableSummary(t *testing.T) {
	s := sampleSchemas()["olist_order_items_dataset"]
	m := sampleMetrics()["olist_order_items_dataset"]

	g := NewGenerator(&fakeRuntime{reply: `{"summary":"Line items per order.","risks":["orphans"]}`}, "m", 0, nil)
	sum, err := g.TableSummary(context.Background(), s, m)
	require.NoError(t, err)
	assert.Equal(t, TableSummary{Table: "olist_order_items_dataset", Summary: "Line items per order.", Risks: []string{"orphans"}}, sum)

	sum, err = NewGenerator(nil, "m", 0, nil).TableSummary(context.Background(), s, m)
	assert.Error(t, err)
	assert.Equal(t, "olist_order_items_dataset has 200 rows across 2 columns with a trust score of 88.10.", sum.Summary)
	assert.Equal(t, m.Issues, sum.Risks)
}

func TestChat(t *testing.T) {
	rt := &fakeRuntime{reply: "  The **order_id** is the key.  "}
	g := NewGenerator(rt, "m", 0, nil)
	answer, err := g.Chat(context.Background(), "what is the key?", ChatContext{Schemas: sampleSchemas(), TrustScores: map[string]float64{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, "The **order_id** is the key.", answer)
	assert.Contains(t, rt.prompts[0], `USER QUESTION: "what is the key?"`)

	limited := &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}}
	answer, err = NewGenerator(&fakeRuntime{err: limited}, "m", 0, nil).Chat(context.Background(), "q", ChatContext{})
	assert.Error(t, err)
	assert.Contains(t, answer, "rate-limited")

	answer, _ = NewGenerator(nil, "m", 0, nil).Chat(context.Background(), "q", ChatContext{})
	assert.Contains(t, answer, "AI features are disabled")

	answer, _ = NewGenerator(&fakeRuntime{err: errors.New("dial tcp: refused")}, "m", 0, nil).Chat(context.Background(), "q", ChatContext{})
	assert.Contains(t, answer, "dial tcp: refused")
}

func TestExplainOutlier(t *testing.T) {
	rt := &fakeRuntime{reply: "A bulk order explains the high price."}
	g := NewGenerator(rt, "m", 0, nil)
	row := map[string]any{"order_id": 7.0, "price": 9999.0}
	reason, err := g.ExplainOutlier(context.Background(), "items", "price", row, 9999.0)
	require.NoError(t, err)
	assert.Equal(t, "A bulk order explains the high price.", reason)
	assert.Contains(t, rt.prompts[0], "Value: 9999")
	assert.Contains(t, rt.prompts[0], `"price": 9999`)

	reason, err = NewGenerator(nil, "m", 0, nil).ExplainOutlier(context.Background(), "items", "price", row, 9999.0)
	assert.Error(t, err)
	assert.Equal(t, fallbackOutlier, reason)
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown(Report{
		Summary:  quality.Summary{AvgTrustScore: 90.3, TotalTables: 2, TotalRows: 290},
		Schemas:  sampleSchemas(),
		Metrics:  sampleMetrics(),
		Overview: &Overview{Title: "E-commerce Audit"},
	})
	assert.Contains(t, out, "[DATASET SUMMARY]\nProject: E-commerce Audit\n")
	assert.Contains(t, out, "Average trust score: 90.30")
	assert.Contains(t, out, "| olist_order_items_dataset | 200 | 88.10 | 100.00 | 10.00 |")
	assert.Contains(t, out, "[TABLE olist_orders_dataset]\nRows: 90\nKeys: order_id\n")
	assert.Contains(t, out, "Foreign key: order_id → olist_orders_dataset")
	assert.Contains(t, out, "- price: numeric, float64 (unique 40, null 0); mean 12.5, std 3\n")
	assert.Contains(t, out, "  • 10.0% orphans in order_id (ref olist_orders_dataset)\n")
	// Tables render in name order.
	assert.Less(t, strings.Index(out, "[TABLE olist_order_items_dataset]"), strings.Index(out, "[TABLE olist_orders_dataset]"))
}

func TestFallbackTextKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("x", 99) + "é…"
	got := status(errors.New(msg))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 100, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "é"))

	assert.Equal(t, "Ready", status(nil))
	assert.Equal(t, "Élan", entityName("élan"))
}
