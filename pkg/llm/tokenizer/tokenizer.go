// Package tokenizer estimates prompt sizes for context budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const (
	// DefaultEncoding approximates the token counts of current chat models.
	DefaultEncoding = "cl100k_base"

	// per-message framing overhead used by chat formats
	messageOverhead = 4

	// flat estimate for an attached screenshot
	imageTokens = 1500
)

// Tokenizer counts tokens with a BPE encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding.
func New() (*Tokenizer, error) {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding loads a named encoding.
func NewWithEncoding(name string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", name, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text. A nil Tokenizer falls
// back to a four-characters-per-token estimate.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return Estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessageTokens counts one message including its blocks.
func (t *Tokenizer) CountMessageTokens(msg *types.Message) int {
	if msg == nil {
		return 0
	}
	n := messageOverhead + t.CountTokens(string(msg.Role))
	for _, b := range msg.Blocks {
		switch b.Type {
		case types.BlockText:
			n += t.CountTokens(b.Text)
		case types.BlockImage:
			n += imageTokens
		case types.BlockToolUse:
			if b.ToolUse != nil {
				n += t.CountTokens(b.ToolUse.Name) + t.CountTokens(string(b.ToolUse.Arguments))
			}
		case types.BlockToolResult:
			if b.ToolResult != nil {
				n += t.CountTokens(b.ToolResult.Content)
			}
		}
	}
	return n
}

// CountMessagesTokens counts a conversation.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		total += t.CountMessageTokens(m)
	}
	return total
}

// Estimate is the fallback used when no encoding is available.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}
