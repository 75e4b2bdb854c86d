// Package context assembles the conversation sent to the model: it renders
// per-turn prompts, folds tool results back in the backend's wire shape and
// keeps the retained history bounded without orphaning tool results.
package context

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/prompts"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm/tokenizer"
	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("context")
	if err != nil {
		debugLog.Warnf("Failed to initialize context logger, using stderr fallback: %v", err)
	}
}

// Defaults applied by New for zero config values.
const (
	DefaultMaxRetained   = 20
	DefaultMaxElements   = 40
	DefaultMaxTextLength = 1500
	DefaultHistoryLines  = 10
)

// Config parameterizes an Assembler.
type Config struct {
	Visual           VisualPolicy
	Shape            llm.WireShape
	MaxRetained      int
	MaxContextTokens int
	MaxElements      int
	MaxTextLength    int
	HistoryLines     int
}

// ScreenshotSource captures the current page.
type ScreenshotSource interface {
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// PromptInput is the state rendered into one turn.
type PromptInput struct {
	Snapshot         *types.Snapshot
	Task             string
	History          []string
	Iteration        int
	MaxIterations    int
	LastActionFailed bool
	// ForceScreenshot attaches a screenshot regardless of the frequency,
	// as long as vision is enabled.
	ForceScreenshot bool
}

// Assembler owns the retained conversation of one run.
type Assembler struct {
	visual     VisualPolicy
	messages   []*types.Message
	strategies []Strategy
	cfg        Config
	mu         sync.Mutex
}

// New creates an Assembler. tok may be nil, in which case token budgeting
// uses a character estimate.
func New(cfg Config, tok *tokenizer.Tokenizer) *Assembler {
	if cfg.MaxRetained <= 0 {
		cfg.MaxRetained = DefaultMaxRetained
	}
	if cfg.MaxElements <= 0 {
		cfg.MaxElements = DefaultMaxElements
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.HistoryLines <= 0 {
		cfg.HistoryLines = DefaultHistoryLines
	}
	return &Assembler{
		cfg:    cfg,
		visual: cfg.Visual,
		strategies: []Strategy{
			WindowStrategy{Max: cfg.MaxRetained, KeepNewestTurn: true},
			TokenBudgetStrategy{Tokenizer: tok, Budget: cfg.MaxContextTokens},
		},
	}
}

// Shape returns the wire shape results are combined into.
func (a *Assembler) Shape() llm.WireShape { return a.cfg.Shape }

// HistoryLines is how many action summaries a prompt should carry.
func (a *Assembler) HistoryLines() int { return a.cfg.HistoryLines }

// Append adds messages to the history and compacts it. The integrity sweep
// runs on every call.
func (a *Assembler) Append(msgs ...*types.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*types.Message, 0, len(a.messages)+len(msgs))
	out = append(out, a.messages...)
	out = append(out, msgs...)

	for _, s := range a.strategies {
		before := len(out)
		out = s.Apply(out)
		if dropped := before - len(out); dropped > 0 {
			debugLog.Debugf("strategy %s dropped %d messages, %d retained", s.Name(), dropped, len(out))
		}
	}
	a.messages = Sweep(out)
}

// History returns a copy of the retained messages.
func (a *Assembler) History() []*types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*types.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Len returns the number of retained messages.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

// Reset clears the history and the visual policy state.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
	a.visual.Reset()
}

// RenderPrompt builds the user turn for the current iteration. The visual
// policy is evaluated here and nowhere else; a screenshot is only captured
// when it says so. A failed capture degrades to a text-only prompt.
func (a *Assembler) RenderPrompt(ctx context.Context, in PromptInput, shots ScreenshotSource) (*types.Message, error) {
	url := ""
	if in.Snapshot != nil {
		url = in.Snapshot.URL
	}

	a.mu.Lock()
	attach := a.visual.Decide(url, in.LastActionFailed)
	if in.ForceScreenshot && a.visual.Enabled {
		attach = true
	}
	attach = attach && shots != nil
	fullPage := a.visual.FullPage
	a.mu.Unlock()

	var image []byte
	if attach {
		data, err := shots.Screenshot(ctx, fullPage)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			debugLog.Warnf("screenshot failed, continuing without image: %v", err)
		case len(data) > 0:
			image = data
		}
	}

	text := prompts.BuildTurn(prompts.Turn{
		Task:          in.Task,
		Snapshot:      in.Snapshot,
		History:       in.History,
		Iteration:     in.Iteration,
		MaxIterations: in.MaxIterations,
		MaxElements:   a.cfg.MaxElements,
		MaxTextLength: a.cfg.MaxTextLength,
		WithVisual:    image != nil,
	})

	msg := types.NewUserMessage(text)
	if image != nil {
		msg.Blocks = append(msg.Blocks, types.ImageBlock(http.DetectContentType(image), base64.StdEncoding.EncodeToString(image)))
	}
	return msg, nil
}

// CombineResults encodes the results of one turn, in invocation order, in
// the configured wire shape.
func (a *Assembler) CombineResults(results []types.ToolResult) []*types.Message {
	return CombineResults(a.cfg.Shape, results)
}

// CombineResults encodes results for the given wire shape: one user message
// holding every tool_result block, or one role=tool message per result.
func CombineResults(shape llm.WireShape, results []types.ToolResult) []*types.Message {
	if len(results) == 0 {
		return nil
	}
	if shape == llm.MessagePerResult {
		out := make([]*types.Message, 0, len(results))
		for _, r := range results {
			out = append(out, types.NewToolMessage(r))
		}
		return out
	}

	msg := &types.Message{Role: types.RoleUser}
	for _, r := range results {
		msg.Blocks = append(msg.Blocks, types.ToolResultBlock(r))
	}
	return []*types.Message{msg}
}
