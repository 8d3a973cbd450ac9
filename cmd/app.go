package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/insightdb-cli/internal/ai"
	"github.com/KaramelBytes/insightdb-cli/internal/docs"
	"github.com/KaramelBytes/insightdb-cli/internal/policy"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/session"
	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
)

// app bundles what a command needs: the model runtime (possibly nil), the
// session and the documentation generator.
type app struct {
	provider string
	model    string
	runtime  ai.Runtime
	session  *session.Session
	gen      *docs.Generator
}

// apiKeyEnv maps providers to the conventional key variable used when the
// config has no api_key.
var apiKeyEnv = map[string]string{
	ai.ProviderOpenAI:     "OPENAI_API_KEY",
	ai.ProviderOpenRouter: "OPENROUTER_API_KEY",
	ai.ProviderAnthropic:  "ANTHROPIC_API_KEY",
}

func buildRuntime() (ai.Runtime, string, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	key := cfg.APIKey
	if key == "" {
		if env, ok := apiKeyEnv[provider]; ok {
			key = os.Getenv(env)
		}
	}
	rt, err := ai.GetRuntime(provider, ai.RuntimeConfig{
		HTTPTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
		Logger:      logger,
		APIKey:      key,
		BaseURL:     cfg.BaseURL,
		Host:        cfg.OllamaHost,
	})
	if err != nil {
		if errors.Is(err, ai.ErrMissingAPIKey) {
			if env, ok := apiKeyEnv[provider]; ok {
				return nil, "", fmt.Errorf("%w: set %s or add api_key in config (~/.insightdb/config.yaml)", err, env)
			}
		}
		return nil, "", err
	}
	model := cfg.Model
	if model == "" {
		model = ai.DefaultModel(provider)
	}
	return ai.WithTemperature(rt, cfg.Temperature), model, nil
}

func loaderOptions() (tabular.Options, error) {
	opt := tabular.DefaultOptions()
	if len(cfg.NullTokens) > 0 {
		opt.NullTokens = cfg.NullTokens
	}
	opt.Delimiter = cfg.DelimiterRune()
	switch strings.ToLower(strings.TrimSpace(flagDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", flagDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(flagThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", flagThousands)
	}
	return opt, nil
}

// newApp wires the configured stack. pol may be nil for no policy.
func newApp(pol policy.Provider) (*app, error) {
	rt, model, err := buildRuntime()
	if err != nil {
		return nil, err
	}
	opt, err := loaderOptions()
	if err != nil {
		return nil, err
	}
	matcher, ok := schema.MatcherByName(cfg.FKMatcher, cfg.FillerTokens)
	if !ok {
		return nil, fmt.Errorf("unknown fk_matcher %q (use substring or inflection)", cfg.FKMatcher)
	}
	sess := session.New(session.Options{
		Load:          opt,
		Matcher:       matcher,
		Policy:        pol,
		PolicyTimeout: time.Duration(cfg.PolicyTimeoutSec) * time.Second,
	}, logger)
	return &app{
		provider: strings.ToLower(strings.TrimSpace(cfg.Provider)),
		model:    model,
		runtime:  rt,
		session:  sess,
		gen:      docs.NewGenerator(rt, model, cfg.MaxTokens, logger),
	}, nil
}

// load reads the first directory and appends the rest.
func (a *app) load(ctx context.Context, dirs []string) (*session.Snapshot, error) {
	snap, err := a.session.Load(ctx, dirs[0])
	if err != nil {
		return nil, err
	}
	for _, d := range dirs[1:] {
		if snap, err = a.session.Append(ctx, d); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// modelHint turns a typed model error into an actionable message. The
// offline fallback has already been produced, so this is advisory only.
func (a *app) modelHint(err error) string {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		qErr    *ai.QuotaExceededError
		unreach *ai.UnreachableError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, docs.ErrNoRuntime):
		return "no model provider configured; showing offline output (set --provider or 'insightdb config set provider ...')"
	case errors.As(err, &unreach):
		if a.provider == ai.ProviderOllama {
			return fmt.Sprintf("Ollama not reachable at %s. Ensure Ollama is running and ollama_host is correct", unreach.Host)
		}
		return "endpoint unreachable; check your network and provider settings"
	case errors.As(err, &authErr):
		if env, ok := apiKeyEnv[a.provider]; ok {
			return fmt.Sprintf("authentication failed: set %s or add api_key in config", env)
		}
		return "authentication failed"
	case errors.As(err, &rlErr):
		return "rate limited by provider, please retry later"
	case errors.As(err, &nfErr):
		if a.provider == ai.ProviderOllama {
			return fmt.Sprintf("local model not available (%s). Install it with 'ollama pull %s'", a.model, a.model)
		}
		return fmt.Sprintf("model not found (%s)", a.model)
	case errors.As(err, &qErr):
		return "provider quota exceeded"
	}
	return "model call failed: " + err.Error()
}

// warnFallback reports that offline output was used.
func (a *app) warnFallback(w io.Writer, err error) {
	if err == nil {
		return
	}
	logger.Debug("model call fell back", zap.Error(err))
	fmt.Fprintln(w, "⚠", a.modelHint(err))
}
