// Package agent drives a browser task from description to result.
//
// An Orchestrator owns one task at a time. Each iteration it observes the
// page, renders a prompt, asks the model backend for tool calls and runs
// them one after another through the loop detector, the risk gate and the
// Actuator. The run ends when the model calls complete_task, when a budget
// ceiling is reached, or when the backend fails.
package agent

import (
	"context"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
	"github.com/Lappy000/Browser-Agent-AI/pkg/usage"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// Actuator performs browser actions. Expected failures such as a missing
// element or a timeout are reported through ActionResult, not as errors.
type Actuator interface {
	Navigate(ctx context.Context, url string) types.ActionResult
	Click(ctx context.Context, target types.Locator) types.ActionResult
	ClickAt(ctx context.Context, x, y int) types.ActionResult
	TypeText(ctx context.Context, target types.Locator, text string, clear bool) types.ActionResult
	SelectOption(ctx context.Context, target types.Locator, value string) types.ActionResult
	Scroll(ctx context.Context, direction string, pixels int) types.ActionResult
	Wait(ctx context.Context, selector string, timeout time.Duration) types.ActionResult
	ExtractData(ctx context.Context, query, format string) types.ActionResult
	GoBack(ctx context.Context) types.ActionResult
	Refresh(ctx context.Context) types.ActionResult
	NewTab(ctx context.Context, url string) types.ActionResult
}

// PageObserver reports the state of the active page.
type PageObserver interface {
	// EnsurePage makes sure there is an open page to act on, opening a new
	// tab when the previous one was closed.
	EnsurePage(ctx context.Context) error
	Observe(ctx context.Context) (*types.Snapshot, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// Answerer relays a question from the model to the user. It may block until
// the user replies.
type Answerer interface {
	Ask(ctx context.Context, question string, options []string) (string, error)
}

// Ledger persists usage records and task outcomes. *usage.Store implements
// it.
type Ledger interface {
	Record(ctx context.Context, rec usage.Record) error
	RecordTaskRun(ctx context.Context, run usage.TaskRun) error
}

// EventHandler receives agent events. It is called synchronously from the
// run loop and must not block.
type EventHandler func(event *types.AgentEvent)

// TokenStats summarizes the consumption of the last run.
type TokenStats struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}
