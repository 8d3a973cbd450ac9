// Package ai wraps the language-model backends used for documentation,
// chat and policy generation behind a single Runtime interface.
package ai

import "context"

// Runtime is implemented by every language-model backend.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
	// ProviderNone disables all model calls; callers fall back to offline output.
	ProviderNone = "none"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	// JSON asks the backend for a single JSON object when it supports it.
	JSON bool `json:"-"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type GenerateResponse struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Ask is a convenience for a single user prompt with an optional system message.
func Ask(ctx context.Context, rt Runtime, model, system, prompt string, maxTokens int, asJSON bool) (string, error) {
	resp, err := rt.Generate(ctx, GenerateRequest{
		Model:     model,
		System:    system,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
		JSON:      asJSON,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

type tempRuntime struct {
	Runtime
	temp float64
}

func (t tempRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Temperature == 0 {
		req.Temperature = t.temp
	}
	return t.Runtime.Generate(ctx, req)
}

// WithTemperature wraps rt so requests that leave Temperature unset use temp.
// A nil rt stays nil.
func WithTemperature(rt Runtime, temp float64) Runtime {
	if rt == nil || temp == 0 {
		return rt
	}
	return tempRuntime{Runtime: rt, temp: temp}
}
