package ai

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) (Runtime, error)

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	// Common
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *zap.Logger
	// Hosted providers
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

func (c RuntimeConfig) retry() RetryPolicy {
	return RetryPolicy{MaxAttempts: c.RetryMax, BaseDelay: c.BaseDelay, MaxDelay: c.MaxDelay}
}

func (c RuntimeConfig) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider. The "none" provider
// yields a nil Runtime and no error.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == ProviderNone {
		return nil, nil
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", name, strings.Join(Providers(), ", "))
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	return f(cfg)
}

// Providers lists registered provider names in sorted order.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// init registers built-in runtimes.
func init() {
	RegisterRuntime(ProviderOpenAI, func(c RuntimeConfig) (Runtime, error) {
		return NewOpenAIClient(ProviderOpenAI, c)
	})
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) (Runtime, error) {
		if c.BaseURL == "" {
			c.BaseURL = "https://openrouter.ai/api/v1"
		}
		return NewOpenAIClient(ProviderOpenRouter, c)
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) (Runtime, error) {
		if c.RetryMax <= 0 {
			c.RetryMax = 2
		}
		if c.BaseDelay <= 0 {
			c.BaseDelay = 200 * time.Millisecond
		}
		if c.MaxDelay <= 0 {
			c.MaxDelay = 1 * time.Second
		}
		return NewOllamaClient(c)
	})
	RegisterRuntime(ProviderAnthropic, func(c RuntimeConfig) (Runtime, error) {
		return NewAnthropicClient(c)
	})
}
