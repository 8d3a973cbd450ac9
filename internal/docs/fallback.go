package docs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/insightdb-cli/internal/ai"
	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
)

const fallbackOutlier = "Outlier detected via statistical Z-score."

func status(err error) string {
	if err == nil {
		return "Ready"
	}
	r := []rune(err.Error())
	if len(r) > 100 {
		r = r[:100]
	}
	return string(r)
}

func fallbackOverview(schemas map[string]*schema.TableSchema, err error) Overview {
	entities := []string{}
	for _, n := range sortedNames(schemas) {
		if len(entities) == 5 {
			break
		}
		entities = append(entities, entityName(n))
	}
	return Overview{
		Title:       "InsightDB Intelligence",
		Description: "AI documentation status: " + status(err),
		Context:     "Context extraction skipped; the model was not available.",
		Value: []string{
			"Enhanced data transparency",
			"Identification of relational risks",
			"Business impact classification",
		},
		KeyEntities: entities,
	}
}

// entityName turns a table name into a display name ("olist_orders_dataset" → "Orders").
func entityName(table string) string {
	clean := schema.CleanTable(table, schema.DefaultFillerTokens)
	if clean == "" {
		return table
	}
	r := []rune(clean)
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

func fallbackDocumentation(err error) Documentation {
	return Documentation{
		Title:                "Dataset Documentation Report",
		ExecutiveSummary:     "Generation status: " + status(err),
		ArchitectureOverview: "Relational structure analysis was not generated; see the schema and quality report.",
		KeyEntities:          []Entity{},
		BusinessUtility: []string{
			"Check the API key and quota",
			"Verify network access to the provider",
			"Retry after a minute",
		},
		DataQualityNarrative: "Detailed assessment unavailable at this time.",
	}
}

func fallbackTableSummary(ts *schema.TableSchema, m *quality.Metrics) TableSummary {
	out := TableSummary{Table: ts.Name, Risks: []string{}}
	if m == nil {
		out.Summary = fmt.Sprintf("%s has %d rows across %d columns.", ts.Name, ts.RowCount, len(ts.Columns))
		return out
	}
	out.Summary = fmt.Sprintf("%s has %d rows across %d columns with a trust score of %.2f.",
		ts.Name, ts.RowCount, len(ts.Columns), m.TrustScore)
	out.Risks = append(out.Risks, m.Issues...)
	return out
}

func fallbackChat(err error) string {
	var rl *ai.RateLimitError
	var qe *ai.QuotaExceededError
	switch {
	case errors.Is(err, ErrNoRuntime):
		return "AI features are disabled. Configure a provider with `insightdb config set provider <name>` to enable chat."
	case errors.As(err, &rl), errors.As(err, &qe):
		return "The AI provider is rate-limited right now. Please wait a minute and try again."
	}
	return fmt.Sprintf("I'm having trouble reaching the AI provider right now. (Status: %s)", status(err))
}
