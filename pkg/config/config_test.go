package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 40, cfg.Limits.MaxIterations)
	assert.Equal(t, 600*time.Second, cfg.Limits.Timeout)
	assert.Equal(t, 0.50, cfg.Limits.MaxCostUSD)
	assert.Equal(t, 0.25, cfg.Limits.WarnCostUSD)
	assert.True(t, cfg.Security.Enabled)
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_BROWSER_AGENT_KEY", "sk-from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: ${TEST_BROWSER_AGENT_KEY}
browser:
  headless: true
  navigation_timeout: 45s
limits:
  max_iterations: 15
  timeout: 2m
vision:
  frequency: always
security:
  denied_hosts: ["*.evil.test"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 15, cfg.Limits.MaxIterations)
	assert.Equal(t, 2*time.Minute, cfg.Limits.Timeout)
	assert.Equal(t, []string{"*.evil.test"}, cfg.Security.DeniedHosts)

	// untouched values keep their defaults
	assert.Equal(t, 0.50, cfg.Limits.MaxCostUSD)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	require.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFindConfig(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	got, err := FindConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "acme" }, "llm.provider"},
		{"custom without base url", func(c *Config) { c.LLM.Provider = ProviderCustom }, "llm.base_url"},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }, "llm.max_retries"},
		{"zero iterations", func(c *Config) { c.Limits.MaxIterations = 0 }, "max_iterations"},
		{"zero timeout", func(c *Config) { c.Limits.Timeout = 0 }, "limits.timeout"},
		{"zero cost", func(c *Config) { c.Limits.MaxCostUSD = 0 }, "max_cost_usd"},
		{"warn above max", func(c *Config) { c.Limits.WarnCostUSD = 1 }, "warn_cost_usd"},
		{"tiny window", func(c *Config) { c.Limits.MaxRetainedMessages = 2 }, "max_retained_messages"},
		{"loop repetitions", func(c *Config) { c.Loop.Repetitions = 1 }, "loop.repetitions"},
		{"vision frequency", func(c *Config) { c.Vision.Frequency = "sometimes" }, "vision.frequency"},
		{"verbosity", func(c *Config) { c.Logging.Verbosity = "loud" }, "logging.verbosity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnvFrom(envMap(map[string]string{
		"BROWSER_AGENT_PROVIDER": "OpenRouter",
		"BROWSER_AGENT_MODEL":    "anthropic/claude-sonnet-4",
		"OPENROUTER_API_KEY":     "or-key",
		"ANTHROPIC_API_KEY":      "ignored",
		"HEADLESS":               "true",
		"MAX_ITERATIONS":         "12",
		"TASK_TIMEOUT":           "90",
		"MAX_COST_USD":           "0.1",
		"VISION_FREQUENCY":       "on-failure",
		"SECURITY_ENABLED":       "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenRouter, cfg.LLM.Provider)
	assert.Equal(t, "anthropic/claude-sonnet-4", cfg.LLM.Model)
	assert.Equal(t, "or-key", cfg.LLM.APIKey)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 12, cfg.Limits.MaxIterations)
	assert.Equal(t, 90*time.Second, cfg.Limits.Timeout)
	assert.Equal(t, 0.1, cfg.Limits.MaxCostUSD)
	assert.Equal(t, 0.05, cfg.Limits.WarnCostUSD, "warn threshold follows a lowered ceiling")
	assert.Equal(t, "on-failure", cfg.Vision.Frequency)
	assert.False(t, cfg.Security.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvCustomProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = ProviderCustom
	require.NoError(t, cfg.ApplyEnvFrom(envMap(map[string]string{
		"CUSTOM_API_KEY":      "c-key",
		"CUSTOM_API_BASE_URL": "http://localhost:8080/v1",
		"TASK_TIMEOUT":        "3m",
	})))
	assert.Equal(t, "c-key", cfg.LLM.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 3*time.Minute, cfg.Limits.Timeout)
}

func TestApplyEnvKeepsFileKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "from-file"
	require.NoError(t, cfg.ApplyEnvFrom(envMap(map[string]string{"ANTHROPIC_API_KEY": "from-env"})))
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
}

func TestApplyEnvInvalid(t *testing.T) {
	for _, key := range []string{"HEADLESS", "MAX_ITERATIONS", "TASK_TIMEOUT", "MAX_COST_USD", "SECURITY_ENABLED"} {
		t.Run(key, func(t *testing.T) {
			err := Default().ApplyEnvFrom(envMap(map[string]string{key: "not-a-value"}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestBuildBackend(t *testing.T) {
	tests := []struct {
		name     string
		cfg      LLMConfig
		provider string
		shape    llm.WireShape
	}{
		{"anthropic", LLMConfig{Provider: ProviderAnthropic, APIKey: "k", Model: "claude-x"}, "anthropic", llm.BlockEmbedded},
		{"openai", LLMConfig{Provider: ProviderOpenAI, APIKey: "k"}, "openai", llm.MessagePerResult},
		{"openrouter", LLMConfig{Provider: ProviderOpenRouter, APIKey: "k"}, "openrouter", llm.MessagePerResult},
		{"custom", LLMConfig{Provider: ProviderCustom, APIKey: "k", BaseURL: "http://localhost:1/v1"}, "custom", llm.MessagePerResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := BuildBackend(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, b.Provider())
			assert.Equal(t, tt.shape, b.Shape())
		})
	}

	_, err := BuildBackend(LLMConfig{Provider: ProviderAnthropic})
	assert.Error(t, err)
	_, err = BuildBackend(LLMConfig{Provider: "acme", APIKey: "k"})
	assert.Error(t, err)
}

func TestBuildBackendRetries(t *testing.T) {
	b, err := BuildBackend(LLMConfig{Provider: ProviderOpenAI, APIKey: "k", MaxRetries: 2})
	require.NoError(t, err)
	_, ok := b.(*llm.RetryingBackend)
	assert.True(t, ok)
	assert.Equal(t, "openai", b.Provider())
	assert.Equal(t, llm.MessagePerResult, b.Shape())

	b, err = BuildBackend(LLMConfig{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	_, ok = b.(*llm.RetryingBackend)
	assert.False(t, ok)

	assert.Equal(t, 3, Default().LLM.MaxRetries)
}

func TestOverrides(t *testing.T) {
	c := LLMConfig{Provider: ProviderAnthropic, Model: "a", APIKey: "file"}
	Overrides{Model: "b", BaseURL: "http://x"}.Apply(&c)
	assert.Equal(t, LLMConfig{Provider: ProviderAnthropic, Model: "b", APIKey: "file", BaseURL: "http://x"}, c)
}
