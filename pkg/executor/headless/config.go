package headless

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
)

// Config is a headless run file.
type Config struct {
	// Task description
	Task string `yaml:"task" json:"task"`

	// Execution mode
	Mode ExecutionMode `yaml:"mode" json:"mode"`

	// Safety constraints
	Constraints ConstraintConfig `yaml:"constraints" json:"constraints"`

	// AutoApprove answers every risk confirmation with yes. Without it,
	// medium and high risk actions are refused.
	AutoApprove bool `yaml:"auto_approve" json:"auto_approve"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ExecutionMode defines what the agent may do to pages.
type ExecutionMode string

const (
	// ModeObserve allows navigation and reading only
	ModeObserve ExecutionMode = "observe"
	// ModeAct also allows clicking, typing and selecting
	ModeAct ExecutionMode = "act"
)

// ConstraintConfig defines the limits of a headless run. Zero values leave
// the matching ceiling of the base budget in place.
type ConstraintConfig struct {
	// URL glob patterns, matched against full URLs
	AllowedURLs []string `yaml:"allowed_urls" json:"allowed_urls"`
	DeniedURLs  []string `yaml:"denied_urls" json:"denied_urls"`

	// Tool restrictions
	AllowedTools []string `yaml:"allowed_tools" json:"allowed_tools"`

	// Resource limits
	MaxTokens     int           `yaml:"max_tokens" json:"max_tokens"`
	MaxIterations int           `yaml:"max_iterations" json:"max_iterations"`
	MaxCostUSD    float64       `yaml:"max_cost_usd" json:"max_cost_usd"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// LoadConfig reads a run file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Task == "" {
		return fmt.Errorf("task description is required")
	}

	if c.Mode != ModeObserve && c.Mode != ModeAct {
		return fmt.Errorf("invalid mode: %s (must be 'observe' or 'act')", c.Mode)
	}

	if c.Constraints.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.Constraints.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative")
	}

	if c.Constraints.MaxIterations < 0 {
		return fmt.Errorf("max_iterations cannot be negative")
	}

	if c.Constraints.MaxCostUSD < 0 {
		return fmt.Errorf("max_cost_usd cannot be negative")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts require an output_dir")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// Budget narrows base with the run's own limits. A limit only ever
// tightens the base ceiling.
func (c *Config) Budget(base task.Budget) task.Budget {
	b := base
	if n := c.Constraints.MaxIterations; n > 0 && (b.MaxIterations == 0 || n < b.MaxIterations) {
		b.MaxIterations = n
	}
	if d := c.Constraints.Timeout; d > 0 && (b.Timeout == 0 || d < b.Timeout) {
		b.Timeout = d
	}
	if usd := c.Constraints.MaxCostUSD; usd > 0 && (b.MaxCostUSD == 0 || usd < b.MaxCostUSD) {
		b.MaxCostUSD = usd
		if b.WarnCostUSD > usd {
			b.WarnCostUSD = usd
		}
	}
	return b
}

// DefaultConfig returns a configuration for an observe-only run.
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeObserve,
		Constraints: ConstraintConfig{
			Timeout:   5 * time.Minute,
			MaxTokens: 200000,
		},
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".browser-agent/artifacts",
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}
