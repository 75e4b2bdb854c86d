package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 1, Estimate("abc"))
	assert.Equal(t, 1, Estimate("abcd"))
	assert.Equal(t, 2, Estimate("abcde"))
}

func TestNilTokenizerFallsBack(t *testing.T) {
	var tok *Tokenizer
	assert.Equal(t, Estimate("hello world"), tok.CountTokens("hello world"))

	msg := types.NewUserMessage("hello")
	assert.Equal(t, messageOverhead+Estimate("user")+Estimate("hello"), tok.CountMessageTokens(msg))
	assert.Zero(t, tok.CountMessageTokens(nil))
}

func TestCountMessagesWithBlocks(t *testing.T) {
	var tok *Tokenizer
	msg := &types.Message{
		Role: types.RoleUser,
		Blocks: []types.ContentBlock{
			types.ImageBlock("image/png", "AAAA"),
			types.ToolResultBlock(types.ToolResult{ToolUseID: "call_1", Content: "done"}),
		},
	}
	got := tok.CountMessagesTokens([]*types.Message{msg, msg})
	want := 2 * (messageOverhead + Estimate("user") + imageTokens + Estimate("done"))
	assert.Equal(t, want, got)
}

func TestEncodingCounts(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Skipf("encoding unavailable in this environment: %v", err)
	}
	n := tok.CountTokens("The quick brown fox jumps over the lazy dog")
	assert.Greater(t, n, 5)
	assert.Less(t, n, 20)
}
