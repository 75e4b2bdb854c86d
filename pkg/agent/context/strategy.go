package context

import (
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm/tokenizer"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// Strategy shrinks a history by dropping messages from the head. Strategies
// never reorder or edit messages; the integrity sweep runs after each one.
type Strategy interface {
	// Name returns the strategy's identifier for logging.
	Name() string

	// Apply returns the retained suffix of messages.
	Apply(messages []*types.Message) []*types.Message
}

// WindowStrategy keeps at most Max messages.
//
// A single turn with many tool results can be longer than Max, leaving no
// turn start inside the window. KeepNewestTurn then keeps that turn whole
// instead of emptying the history.
type WindowStrategy struct {
	Max            int
	KeepNewestTurn bool
}

// Name returns "window".
func (s WindowStrategy) Name() string { return "window" }

// Apply drops from the head down to Max messages and re-aligns the head.
// A non-positive Max disables the bound.
func (s WindowStrategy) Apply(messages []*types.Message) []*types.Message {
	if s.Max <= 0 || len(messages) <= s.Max {
		return messages
	}
	kept := settle(messages[len(messages)-s.Max:])
	if len(kept) == 0 && s.KeepNewestTurn {
		if i := lastTurnStart(messages); i >= 0 {
			debugLog.Warnf("newest turn has %d messages, more than the window of %d; keeping it whole", len(messages)-i, s.Max)
			return settle(messages[i:])
		}
	}
	return kept
}

// TokenBudgetStrategy drops whole turns from the head while the estimated
// token count exceeds Budget. The newest turn is always kept.
type TokenBudgetStrategy struct {
	Tokenizer *tokenizer.Tokenizer
	Budget    int
}

// Name returns "token_budget".
func (s TokenBudgetStrategy) Name() string { return "token_budget" }

// Apply enforces the budget. A non-positive Budget disables it.
func (s TokenBudgetStrategy) Apply(messages []*types.Message) []*types.Message {
	if s.Budget <= 0 {
		return messages
	}
	for s.Tokenizer.CountMessagesTokens(messages) > s.Budget {
		next := nextTurnStart(messages)
		if next <= 0 {
			break
		}
		messages = settle(messages[next:])
	}
	return messages
}

// nextTurnStart returns the index of the second turn start, or -1.
func nextTurnStart(messages []*types.Message) int {
	for i := 1; i < len(messages); i++ {
		if isTurnStart(messages[i]) {
			return i
		}
	}
	return -1
}

// lastTurnStart returns the index of the last turn start, or -1.
func lastTurnStart(messages []*types.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if isTurnStart(messages[i]) {
			return i
		}
	}
	return -1
}

// settle aligns the head and sweeps until both are stable. Sweeping can
// remove a leading results-only message, which exposes a new head.
func settle(messages []*types.Message) []*types.Message {
	for {
		aligned := alignHead(messages)
		swept := Sweep(aligned)
		if len(swept) == len(aligned) {
			return swept
		}
		messages = swept
	}
}

// AppendAndCompact appends turn to messages, drops from the head while the
// result exceeds maxRetained, and always finishes with the integrity sweep.
// The input slice is not modified.
func AppendAndCompact(messages []*types.Message, turn []*types.Message, maxRetained int) []*types.Message {
	out := make([]*types.Message, 0, len(messages)+len(turn))
	out = append(out, messages...)
	out = append(out, turn...)
	out = WindowStrategy{Max: maxRetained}.Apply(out)
	return Sweep(out)
}
