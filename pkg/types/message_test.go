package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAssistantMessage(t *testing.T) {
	calls := []ToolCall{
		{ID: "call_1", Name: "navigate", Arguments: json.RawMessage(`{"url":"https://example.com"}`)},
		{ID: "call_2", Name: "click", Arguments: json.RawMessage(`{"element_index":2}`)},
	}
	msg := NewAssistantMessage("opening the page", calls)

	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "opening the page", msg.Text())
	assert.Len(t, msg.Blocks, 3)
	assert.Equal(t, calls, msg.ToolCalls())
}

func TestNewAssistantMessageWithoutText(t *testing.T) {
	msg := NewAssistantMessage("", []ToolCall{{ID: "a", Name: "refresh"}})
	assert.Len(t, msg.Blocks, 1)
	assert.Equal(t, BlockToolUse, msg.Blocks[0].Type)
}

func TestNewToolMessage(t *testing.T) {
	msg := NewToolMessage(ToolResult{ToolUseID: "call_1", Content: "ok"})
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call_1", msg.ToolCallID)
	assert.Equal(t, []ToolResult{{ToolUseID: "call_1", Content: "ok"}}, msg.ToolResults())
}

func TestMessageClone(t *testing.T) {
	orig := NewUserMessage("hello")
	clone := orig.Clone()
	clone.Blocks[0] = TextBlock("changed")

	assert.Equal(t, "hello", orig.Text())
	assert.Equal(t, "changed", clone.Text())
}

func TestMessageHasImage(t *testing.T) {
	msg := &Message{Role: RoleUser, Blocks: []ContentBlock{ImageBlock("image/png", "AAAA"), TextBlock("page")}}
	assert.True(t, msg.HasImage())
	assert.False(t, NewUserMessage("x").HasImage())
}

func TestSnapshotElementAt(t *testing.T) {
	snap := &Snapshot{Elements: []Element{
		{Index: 0, Text: "Home"},
		{Index: 4, AriaLabel: "Delete message"},
	}}

	el, ok := snap.ElementAt(4)
	assert.True(t, ok)
	assert.Equal(t, "Delete message", el.Label())

	_, ok = snap.ElementAt(9)
	assert.False(t, ok)

	var nilSnap *Snapshot
	_, ok = nilSnap.ElementAt(0)
	assert.False(t, ok)
}

func TestLocator(t *testing.T) {
	el := &Element{Index: 3, Text: "Sign in", Selector: "#login"}

	byIndex := Locator{Element: el, Selector: "button"}
	assert.Equal(t, "#login", byIndex.CSS())
	assert.Equal(t, `[3] "Sign in"`, byIndex.Describe())

	bySelector := Locator{Selector: "a.next"}
	assert.Equal(t, "a.next", bySelector.CSS())
	assert.Equal(t, "a.next", bySelector.Describe())

	unlabeled := Locator{Element: &Element{Index: 7, Selector: "div:nth-of-type(2)"}}
	assert.Equal(t, "[7]", unlabeled.Describe())
}
