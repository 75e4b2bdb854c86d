package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides the configuration from the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overrides the configuration from lookup. The API key matching
// the selected provider is used when the file sets none.
func (c *Config) ApplyEnvFrom(lookup LookupFunc) error {
	if v, ok := lookup("BROWSER_AGENT_PROVIDER"); ok && v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v, ok := lookup("BROWSER_AGENT_MODEL"); ok && v != "" {
		c.LLM.Model = v
	}

	if c.LLM.APIKey == "" {
		keyVar := map[string]string{
			ProviderAnthropic:  "ANTHROPIC_API_KEY",
			ProviderOpenAI:     "OPENAI_API_KEY",
			ProviderOpenRouter: "OPENROUTER_API_KEY",
			ProviderCustom:     "CUSTOM_API_KEY",
		}[c.LLM.Provider]
		if v, ok := lookup(keyVar); ok && keyVar != "" {
			c.LLM.APIKey = v
		}
	}
	if c.LLM.Provider == ProviderCustom {
		if v, ok := lookup("CUSTOM_API_BASE_URL"); ok && v != "" {
			c.LLM.BaseURL = v
		}
	}

	if v, ok := lookup("HEADLESS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HEADLESS: %w", err)
		}
		c.Browser.Headless = b
	}
	if v, ok := lookup("MAX_ITERATIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_ITERATIONS: %w", err)
		}
		c.Limits.MaxIterations = n
	}
	if v, ok := lookup("TASK_TIMEOUT"); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("TASK_TIMEOUT: %w", err)
		}
		c.Limits.Timeout = d
	}
	if v, ok := lookup("MAX_COST_USD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MAX_COST_USD: %w", err)
		}
		c.Limits.MaxCostUSD = f
		if c.Limits.WarnCostUSD > f {
			c.Limits.WarnCostUSD = f / 2
		}
	}
	if v, ok := lookup("VISION_FREQUENCY"); ok && v != "" {
		c.Vision.Frequency = v
	}
	if v, ok := lookup("SECURITY_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SECURITY_ENABLED: %w", err)
		}
		c.Security.Enabled = b
	}
	return nil
}

// parseSeconds accepts a Go duration ("90s", "5m") or a plain number of
// seconds.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
