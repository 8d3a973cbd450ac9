// Package docs produces human-readable documentation for a profiled dataset:
// model-written overviews, summaries and chat answers with offline fallbacks,
// plus a model-free markdown report.
package docs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/insightdb-cli/internal/ai"
	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

// ErrNoRuntime is reported when generation is requested with AI disabled.
var ErrNoRuntime = errors.New("no model runtime configured")

// Generator is a read-only consumer of schemas and metrics. Every method
// returns a usable value: when the model call fails the value is the
// offline fallback and the error says why.
type Generator struct {
	Runtime   ai.Runtime
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

func NewGenerator(rt ai.Runtime, model string, maxTokens int, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{Runtime: rt, Model: model, MaxTokens: maxTokens, Logger: logger.Named("docs")}
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// contextBudget is the token share of the model window given to dataset context.
func (g *Generator) contextBudget() int {
	return ai.LookupModel(g.Model).ContextTokens / 2
}

func (g *Generator) ask(ctx context.Context, prompt string, asJSON bool) (string, error) {
	if g.Runtime == nil {
		return "", ErrNoRuntime
	}
	maxTokens := g.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return ai.Ask(ctx, g.Runtime, g.Model, "", prompt, maxTokens, asJSON)
}

func (g *Generator) askJSON(ctx context.Context, prompt string, v any) error {
	reply, err := g.ask(ctx, prompt, true)
	if err != nil {
		return err
	}
	if err := ai.DecodeJSON(reply, v); err != nil {
		return fmt.Errorf("parse model reply: %w", err)
	}
	return nil
}

func (g *Generator) fellBack(what string, err error) {
	if errors.Is(err, ErrNoRuntime) {
		g.logger().Debug("using offline "+what, zap.Error(err))
		return
	}
	g.logger().Warn("model call failed, using offline "+what, zap.Error(err))
}

type liteTable struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

func (g *Generator) liteContext(schemas map[string]*schema.TableSchema) (string, int) {
	names := sortedNames(schemas)
	lite := make([]liteTable, 0, len(names))
	rows := 0
	for _, n := range names {
		s := schemas[n]
		rows += s.RowCount
		cols := make([]string, 0, len(s.Columns))
		for _, c := range s.Columns {
			cols = append(cols, c.Name)
		}
		lite = append(lite, liteTable{Table: n, Columns: cols})
	}
	b, _ := json.MarshalIndent(lite, "", "  ")
	return utils.TruncateToTokenLimit(string(b), g.contextBudget()), rows
}

// Overview writes the project background.
func (g *Generator) Overview(ctx context.Context, schemas map[string]*schema.TableSchema) (Overview, error) {
	lite, rows := g.liteContext(schemas)
	var out Overview
	err := g.askJSON(ctx, fmt.Sprintf(overviewPrompt, lite, rows), &out)
	if err == nil && out.Title == "" {
		err = errors.New("model reply has no title")
	}
	if err != nil {
		g.fellBack("overview", err)
		return fallbackOverview(schemas, err), err
	}
	return out, nil
}

// Documentation writes the long-form report.
func (g *Generator) Documentation(ctx context.Context, schemas map[string]*schema.TableSchema, metrics map[string]*quality.Metrics) (Documentation, error) {
	lite, rows := g.liteContext(schemas)
	var scores strings.Builder
	for _, n := range sortedNames(metrics) {
		fmt.Fprintf(&scores, "- %s: trust %.2f, completeness %.2f, orphan rate %.2f\n",
			n, metrics[n].TrustScore, metrics[n].Completeness, metrics[n].OrphanRate)
	}
	var out Documentation
	err := g.askJSON(ctx, fmt.Sprintf(documentationPrompt, lite, rows, scores.String()), &out)
	if err == nil && out.Title == "" {
		err = errors.New("model reply has no title")
	}
	if err != nil {
		g.fellBack("documentation", err)
		return fallbackDocumentation(err), err
	}
	return out, nil
}

// TableSummary describes one table.
func (g *Generator) TableSummary(ctx context.Context, ts *schema.TableSchema, m *quality.Metrics) (TableSummary, error) {
	sj, _ := json.MarshalIndent(ts, "", "  ")
	mj, _ := json.MarshalIndent(m, "", "  ")
	budget := g.contextBudget() / 2
	prompt := fmt.Sprintf(tableSummaryPrompt, ts.Name,
		utils.TruncateToTokenLimit(string(sj), budget),
		utils.TruncateToTokenLimit(string(mj), budget))

	var out TableSummary
	err := g.askJSON(ctx, prompt, &out)
	if err == nil && strings.TrimSpace(out.Summary) == "" {
		err = errors.New("model reply has no summary")
	}
	if err != nil {
		g.fellBack("table summary", err)
		return fallbackTableSummary(ts, m), err
	}
	out.Table = ts.Name
	if out.Risks == nil {
		out.Risks = []string{}
	}
	return out, nil
}

// Chat answers a free-form question about the dataset.
func (g *Generator) Chat(ctx context.Context, question string, cc ChatContext) (string, error) {
	b, _ := json.MarshalIndent(cc, "", "  ")
	prompt := fmt.Sprintf(chatPrompt, utils.TruncateToTokenLimit(string(b), g.contextBudget()), question)
	reply, err := g.ask(ctx, prompt, false)
	if err != nil {
		g.fellBack("chat answer", err)
		return fallbackChat(err), err
	}
	return strings.TrimSpace(reply), nil
}

// ExplainOutlier reasons about a single suspicious value in its row.
func (g *Generator) ExplainOutlier(ctx context.Context, table, column string, row map[string]any, value any) (string, error) {
	rj, _ := json.MarshalIndent(row, "", "  ")
	reply, err := g.ask(ctx, fmt.Sprintf(outlierPrompt, table, column, value, rj), false)
	if err != nil {
		g.fellBack("outlier reasoning", err)
		return fallbackOutlier, err
	}
	return strings.TrimSpace(reply), nil
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
