package context

import "github.com/Lappy000/Browser-Agent-AI/pkg/types"

// Sweep removes every tool result whose invocation is not present in the
// given messages. Role=tool messages with an unknown ToolCallID are dropped,
// tool_result blocks with an unknown ToolUseID are filtered out, and a
// message left without content is dropped. Input messages are never
// modified; filtered messages are copies.
func Sweep(messages []*types.Message) []*types.Message {
	known := make(map[string]struct{})
	for _, m := range messages {
		if m.Role != types.RoleAssistant {
			continue
		}
		for _, call := range m.ToolCalls() {
			known[call.ID] = struct{}{}
		}
	}

	out := make([]*types.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == types.RoleTool {
			if _, ok := known[m.ToolCallID]; !ok {
				continue
			}
		}

		if !hasToolResults(m) {
			out = append(out, m)
			continue
		}

		kept := make([]types.ContentBlock, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			if b.Type == types.BlockToolResult {
				if b.ToolResult == nil {
					continue
				}
				if _, ok := known[b.ToolResult.ToolUseID]; !ok {
					continue
				}
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			continue
		}
		if len(kept) == len(m.Blocks) {
			out = append(out, m)
			continue
		}
		c := m.Clone()
		c.Blocks = kept
		out = append(out, c)
	}
	return out
}

func hasToolResults(m *types.Message) bool {
	for _, b := range m.Blocks {
		if b.Type == types.BlockToolResult {
			return true
		}
	}
	return false
}

// isTurnStart reports whether m can open a conversation: a user message with
// content other than tool results.
func isTurnStart(m *types.Message) bool {
	if m.Role != types.RoleUser {
		return false
	}
	for _, b := range m.Blocks {
		if b.Type != types.BlockToolResult {
			return true
		}
	}
	return false
}

// alignHead drops leading messages until the first one opens a turn.
func alignHead(messages []*types.Message) []*types.Message {
	for i, m := range messages {
		if isTurnStart(m) {
			return messages[i:]
		}
	}
	return nil
}

// Validate reports the IDs of tool results that reference no invocation.
// A history produced by this package always validates empty.
func Validate(messages []*types.Message) []string {
	known := make(map[string]struct{})
	for _, m := range messages {
		if m.Role == types.RoleAssistant {
			for _, call := range m.ToolCalls() {
				known[call.ID] = struct{}{}
			}
		}
	}
	var orphans []string
	for _, m := range messages {
		for _, r := range m.ToolResults() {
			if _, ok := known[r.ToolUseID]; !ok {
				orphans = append(orphans, r.ToolUseID)
			}
		}
		if m.Role == types.RoleTool && len(m.ToolResults()) == 0 {
			if _, ok := known[m.ToolCallID]; !ok {
				orphans = append(orphans, m.ToolCallID)
			}
		}
	}
	return orphans
}
