package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Analysis
	PolicyTimeoutSec int      `mapstructure:"policy_timeout_sec" yaml:"policy_timeout_sec"`
	FKMatcher        string   `mapstructure:"fk_matcher" yaml:"fk_matcher"`
	FillerTokens     []string `mapstructure:"filler_tokens" yaml:"filler_tokens"`
	NullTokens       []string `mapstructure:"null_tokens" yaml:"null_tokens"`
	Delimiter        string   `mapstructure:"delimiter" yaml:"delimiter"`
}

var defaults = map[string]any{
	"provider":            "none",
	"model":               "",
	"api_key":             "",
	"base_url":            "",
	"max_tokens":          1024,
	"temperature":         0.2,
	"http_timeout_sec":    60,
	"retry_max_attempts":  3,
	"retry_base_delay_ms": 500,
	"retry_max_delay_ms":  4000,
	"ollama_host":         "http://127.0.0.1:11434",
	"policy_timeout_sec":  30,
	"fk_matcher":          "substring",
	"filler_tokens":       []string{"olist_", "_dataset"},
	"null_tokens":         []string{"", "NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "#N/A"},
	"delimiter":           "",
}

// DefaultPath is ~/.insightdb/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".insightdb", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to DefaultPath, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("INSIGHTDB")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// a missing file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable configuration keys.
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	switch key {
	case "provider":
		c.Provider = strings.ToLower(strings.TrimSpace(val))
	case "model":
		c.Model = val
	case "api_key":
		c.APIKey = val
	case "base_url":
		c.BaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "fk_matcher":
		c.FKMatcher = strings.ToLower(strings.TrimSpace(val))
	case "delimiter":
		c.Delimiter = val
	case "filler_tokens":
		c.FillerTokens = splitList([]string{val})
	case "null_tokens":
		c.NullTokens = splitList([]string{val})
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for temperature: %w", err)
		}
		c.Temperature = f
	case "max_tokens", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms",
		"retry_max_delay_ms", "policy_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %q", key, val)
		}
		*c.intField(key) = i
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func (c *Global) intField(key string) *int {
	switch key {
	case "max_tokens":
		return &c.MaxTokens
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	}
	return &c.PolicyTimeoutSec
}

// DelimiterRune returns the configured delimiter, or 0 for auto. "\t" and
// "tab" both mean a tab.
func (c *Global) DelimiterRune() rune {
	switch c.Delimiter {
	case "":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	return []rune(c.Delimiter)[0]
}

func splitList(in []string) []string {
	if len(in) != 1 || !strings.Contains(in[0], ",") {
		return in
	}
	parts := strings.Split(in[0], ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
