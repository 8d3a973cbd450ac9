package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/KaramelBytes/insightdb-cli/internal/config"
)

var (
	// Global flags
	cfgFile      string
	debug        bool
	flagProvider string
	flagModel    string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int
	// Loader flags
	flagDelimiter string
	flagDecimal   string
	flagThousands string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "insightdb",
	Short: "InsightDB CLI: profile tabular datasets and score how far they can be trusted",
	Long: `InsightDB loads a directory of CSV/TSV tables, infers their schema and
relationships, and computes per-table quality metrics and a trust score.
Optional language-model backends add documentation, chat and policy inference.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
	_ = logger.Sync()
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.insightdb/config.yaml)")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	f.StringVar(&flagProvider, "provider", "", "model provider: none|openai|openrouter|anthropic|ollama (overrides config)")
	f.StringVar(&flagModel, "model", "", "model name (overrides config)")
	f.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	f.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	f.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	f.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
	f.StringVar(&flagDelimiter, "delimiter", "", "field delimiter: ','|';'|'tab'|'|' (default: by file extension)")
	f.StringVar(&flagDecimal, "decimal", "", "decimal separator: '.'|'comma' (default: auto)")
	f.StringVar(&flagThousands, "thousands", "", "thousands separator: ','|'.'|'space' (default: auto)")
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) error {
	l, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = l

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	f := cmd.Root().PersistentFlags()
	if f.Changed("provider") {
		cfg.Provider = strings.ToLower(strings.TrimSpace(flagProvider))
	}
	if f.Changed("model") {
		cfg.Model = flagModel
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if f.Changed("delimiter") {
		cfg.Delimiter = flagDelimiter
	}
	logger.Debug("config loaded",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.String("fk_matcher", cfg.FKMatcher))
	return nil
}

// newLogger returns a development logger with --debug and a quiet console
// logger on stderr otherwise.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	return zc.Build()
}
