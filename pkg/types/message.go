package types

import "encoding/json"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool marks a standalone tool result message. Only the
	// message-per-result wire shape produces it.
	RoleTool Role = "tool"
)

// BlockType identifies the kind of content block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ImageSource is a base64 encoded image attached to a user turn.
type ImageSource struct {
	MediaType string
	Data      string
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult is the outcome of executing one tool invocation.
// ToolUseID must match the ID of an invocation in a retained assistant turn.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// ContentBlock is one element of a composite message. Exactly one of the
// pointer fields is set, matching Type (text blocks use Text).
type ContentBlock struct {
	Image      *ImageSource
	ToolUse    *ToolCall
	ToolResult *ToolResult
	Type       BlockType
	Text       string
}

// Message is one entry of the conversation history.
type Message struct {
	Role   Role
	Blocks []ContentBlock

	// ToolCallID correlates a RoleTool message with its invocation.
	ToolCallID string
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ImageBlock creates an image content block from base64 data.
func ImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Type: BlockImage, Image: &ImageSource{MediaType: mediaType, Data: data}}
}

// ToolUseBlock creates a tool_use content block.
func ToolUseBlock(call ToolCall) ContentBlock {
	c := call
	return ContentBlock{Type: BlockToolUse, ToolUse: &c}
}

// ToolResultBlock creates a tool_result content block.
func ToolResultBlock(result ToolResult) ContentBlock {
	r := result
	return ContentBlock{Type: BlockToolResult, ToolResult: &r}
}

// NewUserMessage creates a user message holding a single text block.
func NewUserMessage(text string) *Message {
	return &Message{Role: RoleUser, Blocks: []ContentBlock{TextBlock(text)}}
}

// NewAssistantMessage creates an assistant message from free text and tool calls.
func NewAssistantMessage(text string, calls []ToolCall) *Message {
	m := &Message{Role: RoleAssistant}
	if text != "" {
		m.Blocks = append(m.Blocks, TextBlock(text))
	}
	for _, call := range calls {
		m.Blocks = append(m.Blocks, ToolUseBlock(call))
	}
	return m
}

// NewToolMessage creates a standalone tool result message.
func NewToolMessage(result ToolResult) *Message {
	return &Message{
		Role:       RoleTool,
		ToolCallID: result.ToolUseID,
		Blocks:     []ContentBlock{ToolResultBlock(result)},
	}
}

// Text concatenates all text blocks of the message.
func (m *Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if b.Type != BlockText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += b.Text
	}
	return out
}

// ToolCalls returns the tool invocations carried by the message.
func (m *Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse && b.ToolUse != nil {
			calls = append(calls, *b.ToolUse)
		}
	}
	return calls
}

// ToolResults returns the tool results carried by the message.
func (m *Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, b := range m.Blocks {
		if b.Type == BlockToolResult && b.ToolResult != nil {
			results = append(results, *b.ToolResult)
		}
	}
	return results
}

// HasImage reports whether the message carries an image block.
func (m *Message) HasImage() bool {
	for _, b := range m.Blocks {
		if b.Type == BlockImage {
			return true
		}
	}
	return false
}

// Clone returns a copy of the message with its own block slice.
func (m *Message) Clone() *Message {
	c := *m
	c.Blocks = append([]ContentBlock(nil), m.Blocks...)
	return &c
}

// Usage reports token consumption of one backend call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// ToolSchema describes one tool offered to the model.
type ToolSchema struct {
	Parameters  map[string]interface{}
	Name        string
	Description string
}
