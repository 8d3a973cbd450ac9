package ai

import "strings"

// ModelInfo is the subset of model metadata the CLI needs for prompt sizing.
type ModelInfo struct {
	Name          string
	ContextTokens int // approximate context window
}

var defaultModels = map[string]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderAnthropic:  "claude-3-5-haiku-latest",
	ProviderOllama:     "llama3.1:8b",
}

var models = map[string]ModelInfo{
	"gpt-4o-mini":             {Name: "gpt-4o-mini", ContextTokens: 128000},
	"gpt-4o":                  {Name: "gpt-4o", ContextTokens: 128000},
	"openai/gpt-4o-mini":      {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"claude-3-5-haiku-latest": {Name: "claude-3-5-haiku-latest", ContextTokens: 200000},
	"claude-sonnet-4-5":       {Name: "claude-sonnet-4-5", ContextTokens: 200000},
	"llama3.1:8b":             {Name: "llama3.1:8b", ContextTokens: 8192},
}

// fallbackContextTokens is assumed for models missing from the catalog.
const fallbackContextTokens = 8192

// DefaultModel returns the model used when none is configured for provider.
func DefaultModel(provider string) string {
	return defaultModels[strings.ToLower(provider)]
}

// LookupModel returns known metadata; unknown models get a conservative window.
func LookupModel(name string) ModelInfo {
	if m, ok := models[name]; ok {
		return m
	}
	return ModelInfo{Name: name, ContextTokens: fallbackContextTokens}
}
