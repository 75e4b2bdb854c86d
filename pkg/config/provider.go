package config

import (
	"fmt"

	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm/anthropic"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm/openai"
)

// Overrides are command-line values that take precedence over the file and
// the environment.
type Overrides struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Apply copies non-empty overrides into the configuration.
func (o Overrides) Apply(c *LLMConfig) {
	if o.Provider != "" {
		c.Provider = o.Provider
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.APIKey != "" {
		c.APIKey = o.APIKey
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
}

// BuildBackend creates the model backend selected by the configuration.
// Transient failures are retried MaxRetries times.
func BuildBackend(c LLMConfig) (llm.Backend, error) {
	b, err := newBackend(c)
	if err != nil {
		return nil, err
	}
	policy := llm.DefaultRetryPolicy
	policy.MaxRetries = c.MaxRetries
	return llm.WithRetry(b, policy), nil
}

func newBackend(c LLMConfig) (llm.Backend, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("API key is required for provider %s: set it in the config file or the provider's environment variable", c.Provider)
	}

	switch c.Provider {
	case ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithMaxTokens(c.MaxTokens)}
		if c.Model != "" {
			opts = append(opts, anthropic.WithModel(c.Model))
		}
		if c.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(c.BaseURL))
		}
		return anthropic.New(c.APIKey, opts...)

	case ProviderOpenAI, ProviderOpenRouter, ProviderCustom:
		opts := []openai.Option{openai.WithMaxTokens(c.MaxTokens)}
		if c.Model != "" {
			opts = append(opts, openai.WithModel(c.Model))
		}
		if c.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.BaseURL))
		}
		switch c.Provider {
		case ProviderOpenRouter:
			return openai.NewOpenRouter(c.APIKey, opts...)
		case ProviderCustom:
			opts = append(opts, openai.WithProviderName(ProviderCustom))
		}
		return openai.New(c.APIKey, opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q", c.Provider)
	}
}
