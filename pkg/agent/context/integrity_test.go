package context

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

func call(id string) types.ToolCall {
	return types.ToolCall{ID: id, Name: "click", Arguments: json.RawMessage(`{"element_index":1}`)}
}

func result(id string) types.ToolResult {
	return types.ToolResult{ToolUseID: id, Content: "ok"}
}

// turn builds prompt, assistant reply and results for the given call IDs.
func turn(shape llm.WireShape, n int, ids ...string) []*types.Message {
	calls := make([]types.ToolCall, 0, len(ids))
	results := make([]types.ToolResult, 0, len(ids))
	for _, id := range ids {
		calls = append(calls, call(id))
		results = append(results, result(id))
	}
	out := []*types.Message{
		types.NewUserMessage(fmt.Sprintf("prompt %d", n)),
		types.NewAssistantMessage("", calls),
	}
	return append(out, CombineResults(shape, results)...)
}

func TestSweepDropsOrphans(t *testing.T) {
	msgs := []*types.Message{
		types.NewToolMessage(result("gone")),
		{Role: types.RoleUser, Blocks: []types.ContentBlock{
			types.ToolResultBlock(result("gone")),
			types.ToolResultBlock(result("a")),
		}},
		types.NewUserMessage("prompt"),
		types.NewAssistantMessage("", []types.ToolCall{call("a")}),
		{Role: types.RoleUser, Blocks: []types.ContentBlock{types.ToolResultBlock(result("also-gone"))}},
		types.NewToolMessage(result("a")),
	}
	original := msgs[1]

	out := Sweep(msgs)
	require.Len(t, out, 4)
	assert.Empty(t, Validate(out))

	require.Len(t, out[0].Blocks, 1)
	assert.Equal(t, "a", out[0].Blocks[0].ToolResult.ToolUseID)
	assert.Len(t, original.Blocks, 2, "input message must not be edited in place")
	assert.Equal(t, types.RoleTool, out[3].Role)
}

func TestSweepRunsWithoutTruncation(t *testing.T) {
	corrupted := []*types.Message{
		types.NewUserMessage("restored"),
		types.NewToolMessage(result("lost")),
	}
	out := AppendAndCompact(corrupted, []*types.Message{types.NewUserMessage("next")}, 100)
	require.Len(t, out, 2)
	assert.Empty(t, Validate(out))
}

func TestAppendAndCompactDoesNotMutateInput(t *testing.T) {
	base := turn(llm.BlockEmbedded, 0, "a")
	snapshot := append([]*types.Message(nil), base...)
	_ = AppendAndCompact(base, turn(llm.BlockEmbedded, 1, "b"), 3)
	assert.Equal(t, snapshot, base)
}

func TestAppendAndCompactBoundAndAlignment(t *testing.T) {
	for _, shape := range []llm.WireShape{llm.BlockEmbedded, llm.MessagePerResult} {
		t.Run(shape.String(), func(t *testing.T) {
			var history []*types.Message
			for i := 0; i < 10; i++ {
				history = AppendAndCompact(history, turn(shape, i, fmt.Sprintf("c%d", i)), 5)
				assert.LessOrEqual(t, len(history), 5)
				require.NotEmpty(t, history)
				assert.True(t, isTurnStart(history[0]), "history must start with a prompt")
				assert.Empty(t, Validate(history))
			}
			assert.Equal(t, "prompt 9", history[0].Text())
		})
	}
}

func TestWindowStrategyOversizedTurn(t *testing.T) {
	msgs := append(turn(llm.MessagePerResult, 0, "x"), turn(llm.MessagePerResult, 1, "a", "b", "c")...)

	strict := WindowStrategy{Max: 4}.Apply(msgs)
	assert.Empty(t, strict)

	kept := WindowStrategy{Max: 4, KeepNewestTurn: true}.Apply(msgs)
	require.Len(t, kept, 5)
	assert.Equal(t, "prompt 1", kept[0].Text())
	assert.Empty(t, Validate(kept))
}

func TestAppendAndCompactRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, shape := range []llm.WireShape{llm.BlockEmbedded, llm.MessagePerResult} {
		for maxRetained := 1; maxRetained <= 12; maxRetained++ {
			var history []*types.Message
			id := 0
			for i := 0; i < 40; i++ {
				var newTurn []*types.Message
				switch rng.Intn(4) {
				case 0:
					newTurn = []*types.Message{types.NewUserMessage("text only")}
				case 1:
					newTurn = []*types.Message{types.NewAssistantMessage("no tools", nil)}
				default:
					n := 1 + rng.Intn(4)
					ids := make([]string, n)
					for j := range ids {
						ids[j] = fmt.Sprintf("id%d", id)
						id++
					}
					newTurn = turn(shape, i, ids...)
				}
				history = AppendAndCompact(history, newTurn, maxRetained)
				require.LessOrEqual(t, len(history), maxRetained)
				require.Empty(t, Validate(history), "shape=%s max=%d step=%d", shape, maxRetained, i)
			}
		}
	}
}

func TestCombineResults(t *testing.T) {
	results := []types.ToolResult{result("a"), {ToolUseID: "b", Content: "denied", IsError: true}, result("c")}

	t.Run("block embedded", func(t *testing.T) {
		msgs := CombineResults(llm.BlockEmbedded, results)
		require.Len(t, msgs, 1)
		assert.Equal(t, types.RoleUser, msgs[0].Role)
		got := msgs[0].ToolResults()
		require.Len(t, got, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ToolUseID, got[1].ToolUseID, got[2].ToolUseID})
		assert.True(t, got[1].IsError)
	})

	t.Run("message per result", func(t *testing.T) {
		msgs := CombineResults(llm.MessagePerResult, results)
		require.Len(t, msgs, 3)
		for i, id := range []string{"a", "b", "c"} {
			assert.Equal(t, types.RoleTool, msgs[i].Role)
			assert.Equal(t, id, msgs[i].ToolCallID)
		}
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, CombineResults(llm.BlockEmbedded, nil))
	})
}
