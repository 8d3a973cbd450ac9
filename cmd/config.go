package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/insightdb-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set InsightDB configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(w, "model: %s\n", cfg.Model)
		fmt.Fprintf(w, "api_key: %s\n", mask(cfg.APIKey))
		if cfg.BaseURL != "" {
			fmt.Fprintf(w, "base_url: %s\n", cfg.BaseURL)
		}
		fmt.Fprintf(w, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(w, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(w, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(w, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(w, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(w, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Fprintf(w, "ollama_host: %s\n", cfg.OllamaHost)
		fmt.Fprintf(w, "policy_timeout_sec: %d\n", cfg.PolicyTimeoutSec)
		fmt.Fprintf(w, "fk_matcher: %s\n", cfg.FKMatcher)
		fmt.Fprintf(w, "filler_tokens: %s\n", strings.Join(cfg.FillerTokens, ","))
		fmt.Fprintf(w, "null_tokens: %q\n", cfg.NullTokens)
		if cfg.Delimiter != "" {
			fmt.Fprintf(w, "delimiter: %q\n", cfg.Delimiter)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Keys: " + strings.Join(cfgpkg.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
