// Package openai implements llm.Backend for the OpenAI chat completions API
// and compatible services such as OpenRouter.
//
// Tool results are sent as one role=tool message per result
// (llm.MessagePerResult).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// OpenRouterBaseURL is the OpenRouter OpenAI-compatible endpoint.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	defaultMaxTokens = 4096
	maxErrorBody     = 4096
)

var openaiLog *logging.Logger

func init() {
	var err error
	openaiLog, err = logging.NewLogger("openai")
	if err != nil {
		openaiLog.Warnf("Failed to initialize openai logger, using stderr fallback: %v", err)
	}
}

// Backend talks to an OpenAI-compatible chat completions endpoint.
type Backend struct {
	httpClient *http.Client
	headers    map[string]string
	apiKey     string
	baseURL    string
	model      string
	provider   string
	maxTokens  int
}

// Option configures a Backend.
type Option func(*Backend)

// WithModel sets the model to use for completions.
func WithModel(model string) Option {
	return func(b *Backend) {
		b.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) Option {
	return func(b *Backend) {
		b.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = c
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(b *Backend) {
		b.maxTokens = n
	}
}

// WithProviderName sets the name reported by Provider, e.g. "openrouter".
func WithProviderName(name string) Option {
	return func(b *Backend) {
		b.provider = name
	}
}

// WithHeader adds an extra request header.
func WithHeader(key, value string) Option {
	return func(b *Backend) {
		b.headers[key] = value
	}
}

// New creates a backend. The API key is required.
func New(apiKey string, opts ...Option) (*Backend, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	b := &Backend{
		httpClient: &http.Client{},
		headers:    make(map[string]string),
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		provider:   "openai",
		maxTokens:  defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewOpenRouter creates a backend for OpenRouter.
func NewOpenRouter(apiKey string, opts ...Option) (*Backend, error) {
	base := []Option{
		WithBaseURL(OpenRouterBaseURL),
		WithProviderName("openrouter"),
		WithHeader("X-Title", "Browser Agent"),
	}
	return New(apiKey, append(base, opts...)...)
}

// Shape reports message-per-result encoding.
func (b *Backend) Shape() llm.WireShape { return llm.MessagePerResult }

// Model returns the model name.
func (b *Backend) Model() string { return b.model }

// Provider returns the provider name.
func (b *Backend) Provider() string { return b.provider }

type chatRequest struct {
	Model     string                                   `json:"model"`
	Messages  []openai.ChatCompletionMessageParamUnion `json:"messages"`
	Tools     []openai.ChatCompletionToolParam         `json:"tools,omitempty"`
	MaxTokens int                                      `json:"max_tokens,omitempty"`
}

// Send performs one non-streaming chat completion.
func (b *Backend) Send(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	body := chatRequest{
		Model:     b.model,
		Messages:  convertMessages(req.SystemPrompt, req.History),
		Tools:     convertTools(req.Tools),
		MaxTokens: b.maxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	for k, v := range b.headers {
		httpReq.Header.Set(k, v)
	}

	openaiLog.Debugf("sending %d messages to %s (%s)", len(body.Messages), b.provider, b.model)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &llm.BackendError{Provider: b.provider, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		openaiLog.Errorf("API error %d: %s", resp.StatusCode, errBody)
		statusErr := llm.NewStatusError(b.provider, resp.StatusCode, string(errBody))
		statusErr.RetryAfter = llm.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, statusErr
	}

	var completion openai.ChatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, &llm.ProtocolFault{Reason: "decode chat completion", Err: err}
	}
	return convertResponse(&completion)
}

func convertResponse(c *openai.ChatCompletion) (*llm.Response, error) {
	if len(c.Choices) == 0 {
		return nil, &llm.ProtocolFault{Reason: "response has no choices"}
	}
	choice := c.Choices[0]

	out := &llm.Response{
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: types.Usage{
			InputTokens:  int(c.Usage.PromptTokens),
			OutputTokens: int(c.Usage.CompletionTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args := tc.Function.Arguments
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return out, nil
}

// convertMessages maps the conversation onto chat completion messages. Tool
// results carried as blocks inside a user message are split into role=tool
// messages so both encodings are accepted.
func convertMessages(system string, history []*types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}

	for _, msg := range history {
		switch msg.Role {
		case types.RoleAssistant:
			out = append(out, assistantMessage(msg))
		case types.RoleTool:
			for _, r := range msg.ToolResults() {
				out = append(out, openai.ToolMessage(resultContent(r), r.ToolUseID))
			}
		default:
			for _, r := range msg.ToolResults() {
				out = append(out, openai.ToolMessage(resultContent(r), r.ToolUseID))
			}
			if u, ok := userMessage(msg); ok {
				out = append(out, u)
			}
		}
	}
	return out
}

func resultContent(r types.ToolResult) string {
	if r.IsError {
		return "ERROR: " + r.Content
	}
	return r.Content
}

func assistantMessage(msg *types.Message) openai.ChatCompletionMessageParamUnion {
	m := openai.AssistantMessage(msg.Text())
	for _, call := range msg.ToolCalls() {
		args := string(call.Arguments)
		if args == "" {
			args = "{}"
		}
		m.OfAssistant.ToolCalls = append(m.OfAssistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}
	return m
}

func userMessage(msg *types.Message) (openai.ChatCompletionMessageParamUnion, bool) {
	if !msg.HasImage() {
		text := msg.Text()
		if text == "" {
			return openai.ChatCompletionMessageParamUnion{}, false
		}
		return openai.UserMessage(text), true
	}

	var parts []openai.ChatCompletionContentPartUnionParam
	for _, b := range msg.Blocks {
		switch b.Type {
		case types.BlockText:
			parts = append(parts, openai.TextContentPart(b.Text))
		case types.BlockImage:
			if b.Image == nil {
				continue
			}
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: "data:" + b.Image.MediaType + ";base64," + b.Image.Data,
			}))
		}
	}
	return openai.UserMessage(parts), true
}

func convertTools(schemas []types.ToolSchema) []openai.ChatCompletionToolParam {
	if len(schemas) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Parameters:  openai.FunctionParameters(s.Parameters),
			},
		})
	}
	return out
}
