// Package anthropic implements llm.Backend for the Anthropic Messages API.
//
// Tool results of one turn are sent as tool_result blocks inside a single
// user message (llm.BlockEmbedded).
package anthropic

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

	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const (
	// DefaultBaseURL is the Anthropic API root.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
	maxErrorBody     = 4096
)

var anthropicLog *logging.Logger

func init() {
	var err error
	anthropicLog, err = logging.NewLogger("anthropic")
	if err != nil {
		anthropicLog.Warnf("Failed to initialize anthropic logger, using stderr fallback: %v", err)
	}
}

// Backend is a client for the Messages API.
type Backend struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
}

// Option configures a Backend.
type Option func(*Backend)

// WithModel sets the model.
func WithModel(model string) Option {
	return func(b *Backend) { b.model = model }
}

// WithBaseURL overrides the API root.
func WithBaseURL(url string) Option {
	return func(b *Backend) { b.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.httpClient = c }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(b *Backend) { b.maxTokens = n }
}

// New creates a backend. The API key is required.
func New(apiKey string, opts ...Option) (*Backend, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	b := &Backend{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		maxTokens:  defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Shape reports block-embedded encoding.
func (b *Backend) Shape() llm.WireShape { return llm.BlockEmbedded }

// Model returns the model name.
func (b *Backend) Model() string { return b.model }

// Provider returns "anthropic".
func (b *Backend) Provider() string { return "anthropic" }

type request struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Tools     []tool    `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens"`
}

type message struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type content struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *imageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type response struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Role       string    `json:"role"`
	Model      string    `json:"model"`
	StopReason string    `json:"stop_reason"`
	Content    []content `json:"content"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Send performs one Messages API call.
func (b *Backend) Send(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	body := request{
		Model:     b.model,
		System:    req.SystemPrompt,
		Messages:  convertMessages(req.History),
		Tools:     convertTools(req.Tools),
		MaxTokens: b.maxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	anthropicLog.Debugf("sending %d messages, %d tools (%s)", len(body.Messages), len(body.Tools), b.model)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &llm.BackendError{Provider: "anthropic", Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		anthropicLog.Errorf("API error %d: %s", resp.StatusCode, errBody)
		statusErr := llm.NewStatusError("anthropic", resp.StatusCode, string(errBody))
		statusErr.RetryAfter = llm.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, statusErr
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &llm.ProtocolFault{Reason: "decode messages response", Err: err}
	}

	out := &llm.Response{
		StopReason: decoded.StopReason,
		Usage: types.Usage{
			InputTokens:  decoded.Usage.InputTokens,
			OutputTokens: decoded.Usage.OutputTokens,
		},
	}
	var text []string
	for _, c := range decoded.Content {
		switch c.Type {
		case "text":
			text = append(text, c.Text)
		case "tool_use":
			args := c.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, types.ToolCall{ID: c.ID, Name: c.Name, Arguments: args})
		}
	}
	out.Text = strings.Join(text, "\n")

	anthropicLog.Debugf("response: stop=%s in=%d out=%d tool_calls=%d",
		out.StopReason, out.Usage.InputTokens, out.Usage.OutputTokens, len(out.ToolCalls))

	return out, nil
}

// convertMessages maps the conversation onto Messages API turns. Role=tool
// messages are folded into user turns, and consecutive user turns are merged
// because the API requires alternating roles.
func convertMessages(history []*types.Message) []message {
	var out []message
	for _, msg := range history {
		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "assistant"
		}

		blocks := convertBlocks(msg)
		if len(blocks) == 0 {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = mergeBlocks(out[n-1].Content, blocks)
			continue
		}
		out = append(out, message{Role: role, Content: blocks})
	}
	return out
}

// mergeBlocks keeps tool_result blocks ahead of other content in a user turn.
func mergeBlocks(prev, next []content) []content {
	var results, rest []content
	for _, c := range append(prev, next...) {
		if c.Type == "tool_result" {
			results = append(results, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(results, rest...)
}

func convertBlocks(msg *types.Message) []content {
	var out []content
	for _, b := range msg.Blocks {
		switch b.Type {
		case types.BlockText:
			if b.Text != "" {
				out = append(out, content{Type: "text", Text: b.Text})
			}
		case types.BlockImage:
			if b.Image != nil {
				out = append(out, content{Type: "image", Source: &imageSource{Type: "base64", MediaType: b.Image.MediaType, Data: b.Image.Data}})
			}
		case types.BlockToolUse:
			if b.ToolUse != nil {
				input := b.ToolUse.Arguments
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				out = append(out, content{Type: "tool_use", ID: b.ToolUse.ID, Name: b.ToolUse.Name, Input: input})
			}
		case types.BlockToolResult:
			if b.ToolResult != nil {
				out = append(out, content{
					Type:      "tool_result",
					ToolUseID: b.ToolResult.ToolUseID,
					Content:   b.ToolResult.Content,
					IsError:   b.ToolResult.IsError,
				})
			}
		}
	}
	return out
}

func convertTools(schemas []types.ToolSchema) []tool {
	out := make([]tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, tool{Name: s.Name, Description: s.Description, InputSchema: s.Parameters})
	}
	return out
}
