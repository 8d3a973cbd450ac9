package policy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseJSON decodes a policy document. Malformed entries are dropped rather
// than failing the whole document, since policies often come from a model.
func ParseJSON(data []byte) (Policy, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode policy json: %w", err)
	}
	return fromRaw(raw)
}

// ParseYAML is ParseJSON for YAML documents.
func ParseYAML(data []byte) (Policy, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode policy yaml: %w", err)
	}
	if raw == nil {
		return Empty(), nil
	}
	return fromRaw(raw)
}

func fromRaw(raw any) (Policy, error) {
	tables, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("policy must be an object of tables, got %T", raw)
	}
	out := make(Policy, len(tables))
	for table, v := range tables {
		cols, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for col, rv := range cols {
			fields, ok := rv.(map[string]any)
			if !ok {
				continue
			}
			rule, ok := ruleFromRaw(fields)
			if !ok {
				continue
			}
			if out[table] == nil {
				out[table] = map[string]ColumnRule{}
			}
			out[table][col] = rule
		}
	}
	return out, nil
}

func ruleFromRaw(f map[string]any) (ColumnRule, bool) {
	var r ColumnRule
	set := false
	if b, ok := toBool(f["is_unsigned"]); ok {
		r.Unsigned = &b
		set = true
	}
	if rng, ok := toRange(f["range"]); ok {
		r.Range = &rng
		set = true
	}
	if s, ok := f["regex"].(string); ok && strings.TrimSpace(s) != "" {
		r.Regex = s
		set = true
	}
	if list, ok := f["sequence_rules"].([]any); ok {
		for _, item := range list {
			if sr, ok := toSequenceRule(item); ok {
				r.SequenceRules = append(r.SequenceRules, sr)
				set = true
			}
		}
	}
	return r, set
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	return false, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func toRange(v any) (Range, bool) {
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return Range{}, false
	}
	lo, ok1 := toFloat(list[0])
	hi, ok2 := toFloat(list[1])
	if !ok1 || !ok2 || lo > hi {
		return Range{}, false
	}
	return Range{Min: lo, Max: hi}, true
}

func toSequenceRule(v any) (SequenceRule, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return SequenceRule{}, false
	}
	pick := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	sr := SequenceRule{
		Before: pick("before", "before_column"),
		After:  pick("after", "after_column"),
	}
	return sr, sr.Before != "" && sr.After != ""
}
