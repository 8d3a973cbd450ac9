package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/KaramelBytes/insightdb-cli/internal/ai"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
)

const policyPrompt = `You are a data quality architect. Analyze the schema below and produce a JSON validation policy.

Schema:
%s

For each table and column decide:
1. is_unsigned: must the number always be >= 0 (price, quantity, age)? Use false for coordinates, offsets, temperatures.
2. range: [min, max] when it follows from the meaning (latitude [-90, 90], month [1, 12]).
3. regex: a simple pattern where one applies (zip codes, emails).
4. sequence_rules: list of {"before": "<timestamp column>", "after": "<timestamp column>"} for ordered events in the same table.

Output only JSON shaped as:
{"<table>": {"<column>": {"is_unsigned": true, "range": [0, 100], "regex": "...", "sequence_rules": []}}}
Omit keys that do not apply. Columns implying a count or price are unsigned.`

// LLMProvider asks a language model to infer a policy from column names and types.
type LLMProvider struct {
	Runtime   ai.Runtime
	Model     string
	MaxTokens int
}

type liteTable struct {
	Table   string       `json:"table"`
	Columns []liteColumn `json:"columns"`
}

type liteColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (l LLMProvider) Provide(ctx context.Context, schemas map[string]*schema.TableSchema) (Policy, error) {
	if l.Runtime == nil {
		return nil, fmt.Errorf("no model runtime configured")
	}
	ctxJSON, err := json.MarshalIndent(liteContext(schemas), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema context: %w", err)
	}
	maxTokens := l.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	reply, err := ai.Ask(ctx, l.Runtime, l.Model, "", fmt.Sprintf(policyPrompt, ctxJSON), maxTokens, true)
	if err != nil {
		return nil, fmt.Errorf("generate policy: %w", err)
	}
	raw, err := ai.ExtractJSON(reply)
	if err != nil {
		return nil, fmt.Errorf("parse policy reply: %w", err)
	}
	return ParseJSON([]byte(raw))
}

func liteContext(schemas map[string]*schema.TableSchema) []liteTable {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]liteTable, 0, len(names))
	for _, n := range names {
		lt := liteTable{Table: n, Columns: []liteColumn{}}
		for _, c := range schemas[n].Columns {
			lt.Columns = append(lt.Columns, liteColumn{Name: c.Name, Type: c.RawType})
		}
		out = append(out, lt)
	}
	return out
}
