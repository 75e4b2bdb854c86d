// Package config loads the browser agent configuration.
//
// Values come from built-in defaults, an optional YAML file and environment
// overrides, in that order. The resulting *Config is built once at startup
// and passed to the components that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in llm.provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderCustom     = "custom"
)

// Config holds all browser agent configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Browser    BrowserConfig    `yaml:"browser"`
	Vision     VisionConfig     `yaml:"vision"`
	Limits     LimitsConfig     `yaml:"limits"`
	Loop       LoopConfig       `yaml:"loop"`
	Security   SecurityConfig   `yaml:"security"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Usage      UsageConfig      `yaml:"usage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PricingEntry is the per-million-token price of a model.
type PricingEntry struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	Pricing   map[string]PricingEntry `yaml:"pricing"`
	Provider  string                  `yaml:"provider"`
	Model     string                  `yaml:"model"`
	APIKey    string                  `yaml:"api_key"`
	BaseURL   string                  `yaml:"base_url"`
	MaxTokens int                     `yaml:"max_tokens"`

	// MaxRetries is how often a rate-limited or failed call is repeated.
	MaxRetries int `yaml:"max_retries"`
}

// BrowserConfig configures the playwright session.
type BrowserConfig struct {
	Headless          bool          `yaml:"headless"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `yaml:"action_timeout"`
	WaitCap           time.Duration `yaml:"wait_cap"`
	SlowMo            float64       `yaml:"slow_mo"`
	UserDataDir       string        `yaml:"user_data_dir"`
}

// VisionConfig controls screenshot attachment.
type VisionConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Frequency string `yaml:"frequency"`
	FullPage  bool   `yaml:"full_page"`
}

// LimitsConfig bounds a task run.
type LimitsConfig struct {
	MaxIterations       int           `yaml:"max_iterations"`
	Timeout             time.Duration `yaml:"timeout"`
	MaxCostUSD          float64       `yaml:"max_cost_usd"`
	WarnCostUSD         float64       `yaml:"warn_cost_usd"`
	MaxRetainedMessages int           `yaml:"max_retained_messages"`
	MaxContextTokens    int           `yaml:"max_context_tokens"`
	MaxHistory          int           `yaml:"max_history"`
	MaxElements         int           `yaml:"max_elements"`
	MaxTextLength       int           `yaml:"max_text_length"`
}

// LoopConfig tunes the repeated-action detector.
type LoopConfig struct {
	Repetitions int `yaml:"repetitions"`
	Window      int `yaml:"window"`
}

// SecurityConfig configures the risk gate and URL validation.
type SecurityConfig struct {
	Enabled             bool          `yaml:"enabled"`
	HighRiskURLPatterns []string      `yaml:"high_risk_url_patterns"`
	AllowedSchemes      []string      `yaml:"allowed_schemes"`
	BlockedSchemes      []string      `yaml:"blocked_schemes"`
	AllowedHosts        []string      `yaml:"allowed_hosts"`
	DeniedHosts         []string      `yaml:"denied_hosts"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"`
}

// ExtractionConfig tunes the extracted-data safeguard.
type ExtractionConfig struct {
	Keywords           []string `yaml:"keywords"`
	BoilerplatePhrases []string `yaml:"boilerplate_phrases"`
	MinResultLength    int      `yaml:"min_result_length"`
}

// UsageConfig locates the usage ledger.
type UsageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Verbosity    string `yaml:"verbosity"`
	ShowThinking bool   `yaml:"show_thinking"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  ProviderAnthropic,
			Model:     "claude-sonnet-4-20250514",
			MaxTokens:  4096,
			MaxRetries: 3,
			Pricing: map[string]PricingEntry{
				"claude-sonnet-4-20250514": {InputPerMillion: 3, OutputPerMillion: 15},
				"claude-opus-4-20250514":   {InputPerMillion: 15, OutputPerMillion: 75},
				"claude-3-5-haiku-latest":  {InputPerMillion: 0.8, OutputPerMillion: 4},
				"gpt-4o":                   {InputPerMillion: 2.5, OutputPerMillion: 10},
				"gpt-4o-mini":              {InputPerMillion: 0.15, OutputPerMillion: 0.6},
			},
		},
		Browser: BrowserConfig{
			Headless:          false,
			ViewportWidth:     1280,
			ViewportHeight:    800,
			NavigationTimeout: 30 * time.Second,
			ActionTimeout:     10 * time.Second,
			WaitCap:           500 * time.Millisecond,
		},
		Vision: VisionConfig{
			Enabled:   true,
			Frequency: "on-state-change",
		},
		Limits: LimitsConfig{
			MaxIterations:       40,
			Timeout:             600 * time.Second,
			MaxCostUSD:          0.50,
			WarnCostUSD:         0.25,
			MaxRetainedMessages: 20,
			MaxHistory:          10,
			MaxElements:         40,
			MaxTextLength:       1500,
		},
		Loop: LoopConfig{
			Repetitions: 3,
			Window:      6,
		},
		Security: SecurityConfig{
			Enabled:             true,
			AllowedSchemes:      []string{"http", "https"},
			BlockedSchemes:      []string{"file", "javascript", "data", "vbscript", "about"},
			ConfirmationTimeout: 0,
		},
		Extraction: ExtractionConfig{
			MinResultLength: 50,
		},
		Usage: UsageConfig{
			DatabasePath: defaultDataPath("usage.db"),
		},
		Logging: LoggingConfig{
			Level:     "info",
			Verbosity: "normal",
		},
	}
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".browser-agent", name)
}

// DefaultSearchPaths returns the config file search order.
func DefaultSearchPaths() []string {
	paths := []string{"browser-agent.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "browser-agent", "config.yaml"))
	}
	return paths
}

// FindConfig locates a config file. An explicit path must exist; otherwise
// the first existing default path is returned, or "" when there is none.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Load reads a YAML file on top of the defaults. Environment variables in
// the file are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderOpenRouter:
	case ProviderCustom:
		if c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("llm.base_url is required for the custom provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of anthropic, openai, openrouter, custom", c.LLM.Provider))
	}

	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries must not be negative"))
	}

	if c.Limits.MaxIterations <= 0 {
		errs = append(errs, errors.New("limits.max_iterations must be positive"))
	}
	if c.Limits.Timeout <= 0 {
		errs = append(errs, errors.New("limits.timeout must be positive"))
	}
	if c.Limits.MaxCostUSD <= 0 {
		errs = append(errs, errors.New("limits.max_cost_usd must be positive"))
	}
	if c.Limits.WarnCostUSD < 0 || c.Limits.WarnCostUSD > c.Limits.MaxCostUSD {
		errs = append(errs, errors.New("limits.warn_cost_usd must be between 0 and max_cost_usd"))
	}
	if c.Limits.MaxRetainedMessages < 4 {
		errs = append(errs, errors.New("limits.max_retained_messages must be at least 4"))
	}
	if c.Loop.Repetitions < 2 {
		errs = append(errs, errors.New("loop.repetitions must be at least 2"))
	}

	switch c.Vision.Frequency {
	case "always", "on-state-change", "on-failure":
	default:
		errs = append(errs, fmt.Errorf("vision.frequency %q is not one of always, on-state-change, on-failure", c.Vision.Frequency))
	}

	switch c.Logging.Verbosity {
	case "quiet", "normal", "verbose", "debug":
	default:
		errs = append(errs, fmt.Errorf("logging.verbosity %q is not one of quiet, normal, verbose, debug", c.Logging.Verbosity))
	}

	return errors.Join(errs...)
}
