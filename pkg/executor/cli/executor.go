// Package cli runs browser tasks from a terminal.
//
// The executor reads task descriptions from standard input, runs each one
// to completion and renders the agent's events as they happen. While a task
// runs, input lines answer the agent's pending confirmation or question, and
// "cancel" stops the task.
//
//	approvals := approval.NewManager(0, exec.HandleEvent)
//	orch, _ := agent.New(backend, session, session,
//	    agent.WithEventHandler(exec.HandleEvent),
//	    agent.WithAnswerer(approvals),
//	)
//	err := exec.Run(ctx, orch, approvals)
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/approval"
	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// Runner runs one task. *agent.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, description string) (*task.Result, error)
}

// Responder accepts answers to pending requests. *approval.Manager
// implements it.
type Responder interface {
	HandleResponse(response *approval.Response) bool
}

// Executor is a terminal front end for an agent.
type Executor struct {
	reader   io.Reader
	writer   io.Writer
	pending  *pendingPrompt
	requests chan struct{}

	// Display options
	showThinking bool
	showUsage    bool

	mu      sync.Mutex
	writeMu sync.Mutex
}

type pendingPrompt struct {
	requestID string
	question  bool
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithShowThinking enables/disables displaying the model's free text.
func WithShowThinking(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showThinking = show
	}
}

// WithShowUsage enables/disables per-call token and cost lines.
func WithShowUsage(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showUsage = show
	}
}

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = r
	}
}

// NewExecutor creates a new CLI executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		reader:       os.Stdin,
		writer:       os.Stdout,
		showThinking: true,
		requests:     make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run reads task descriptions until the user exits or input ends.
func (e *Executor) Run(ctx context.Context, runner Runner, responder Responder) error {
	stop := make(chan struct{})
	defer close(stop)
	lines := e.readLines(stop)

	e.println(headerStyle.Render("Browser Agent"))
	e.println(tipsStyle.Render("Describe a task and press Enter. Type 'cancel' to stop a running task, 'exit' or 'quit' to leave."))
	e.println("")

	for {
		e.print(promptStyle.Render("> "))

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			return nil
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result, open, err := e.execute(ctx, runner, responder, line, lines)
		if err != nil {
			e.renderError(err)
		} else {
			e.renderResult(result)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !open {
			return nil
		}
	}
}

// RunTask runs a single task, using standard input only to answer the
// agent's requests.
func (e *Executor) RunTask(ctx context.Context, runner Runner, responder Responder, description string) (*task.Result, error) {
	stop := make(chan struct{})
	defer close(stop)

	result, _, err := e.execute(ctx, runner, responder, description, e.readLines(stop))
	if err != nil {
		e.renderError(err)
		return nil, err
	}
	e.renderResult(result)
	return result, nil
}

// execute runs one task and routes input lines to it until it ends. The
// returned flag reports whether input is still open.
func (e *Executor) execute(ctx context.Context, runner Runner, responder Responder, description string, lines <-chan string) (*task.Result, bool, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result *task.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := runner.Run(runCtx, description)
		done <- outcome{result: result, err: err}
	}()

	open := true
	for {
		select {
		case out := <-done:
			e.setPending(nil)
			return out.result, open, out.err

		case <-e.requests:
			if !open {
				e.declinePending(responder)
			}

		case line, ok := <-lines:
			if !ok {
				open = false
				lines = nil
				e.declinePending(responder)
				continue
			}
			e.handleLine(strings.TrimSpace(line), responder, cancel)
		}
	}
}

func (e *Executor) handleLine(line string, responder Responder, cancel context.CancelFunc) {
	if line == "cancel" {
		e.println(tipsStyle.Render("Cancelling task..."))
		cancel()
		return
	}

	p := e.takePending()
	if p == nil {
		if line != "" {
			e.println(tipsStyle.Render("A task is running. Type 'cancel' to stop it."))
		}
		return
	}

	var resp *approval.Response
	switch {
	case p.question:
		resp = approval.Answer(p.requestID, line)
	case isYes(line):
		resp = approval.Approve(p.requestID)
	default:
		resp = approval.Reject(p.requestID)
	}
	if !responder.HandleResponse(resp) {
		e.println(tipsStyle.Render("That request is no longer open."))
	}
}

// declinePending answers an open request when no more input can arrive.
func (e *Executor) declinePending(responder Responder) {
	p := e.takePending()
	if p == nil {
		return
	}
	if p.question {
		responder.HandleResponse(approval.Answer(p.requestID, ""))
		return
	}
	responder.HandleResponse(approval.Reject(p.requestID))
}

func isYes(line string) bool {
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	}
	return false
}

// readLines feeds input lines to the returned channel until input ends or
// stop is closed.
func (e *Executor) readLines(stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(e.reader)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines
}

// HandleEvent renders one agent event. It is safe to call from any
// goroutine and is meant to be registered with both the orchestrator and
// the approval manager.
func (e *Executor) HandleEvent(event *types.AgentEvent) {
	switch event.Type {
	case types.EventTypeTaskStart:
		e.println("\n" + headerStyle.Render("▶ Task: ") + event.Content)
	case types.EventTypeIterationStart:
		e.println(tipsStyle.Render(fmt.Sprintf("── step %v/%v", event.Metadata["iteration"], event.Metadata["max_iterations"])))
	case types.EventTypeThinkingContent:
		if e.showThinking {
			e.println(thinkingStyle.Render(event.Content))
		}
	case types.EventTypeNoToolCall:
		if e.showThinking && event.Content != "" {
			e.println(thinkingStyle.Render(event.Content))
		}
	case types.EventTypeToolCall:
		e.println(toolStyle.Render("🔧 " + event.ToolName + formatInput(event.ToolInput)))
	case types.EventTypeToolResult:
		e.println(toolResultStyle.Render(fmt.Sprintf("✅ %v", event.ToolOutput)))
	case types.EventTypeToolResultError:
		e.println(errorStyle.Render(fmt.Sprintf("❌ %s: %v", event.ToolName, event.Error)))
	case types.EventTypeLoopDetected:
		e.println(warningStyle.Render("⚠ Repeating action: " + event.Content))
	case types.EventTypeTokenUsage:
		if e.showUsage && event.TokenUsage != nil {
			u := event.TokenUsage
			e.println(tipsStyle.Render(fmt.Sprintf("   tokens %d in / %d out, $%.4f (task $%.4f)", u.PromptTokens, u.CompletionTokens, u.CostUSD, u.TotalCostUSD)))
		}
	case types.EventTypeCostWarning:
		e.println(warningStyle.Render(fmt.Sprintf("⚠ Task cost $%.4f passed the warning threshold $%.4f", event.Metadata["total_cost_usd"], event.Metadata["threshold_usd"])))
	case types.EventTypeConfirmationRequest:
		e.setPending(&pendingPrompt{requestID: event.RequestID})
		e.println(promptStyle.Render("? Confirm: ") + event.Content)
		if event.Reason != "" {
			e.println(tipsStyle.Render("  " + event.Reason))
		}
		e.print(promptStyle.Render("  Allow? [y/N] "))
		e.notifyRequest()
	case types.EventTypeQuestionRequest:
		e.setPending(&pendingPrompt{requestID: event.RequestID, question: true})
		e.println(promptStyle.Render("? ") + event.Content)
		if len(event.Options) > 0 {
			e.println(tipsStyle.Render("  Options: " + strings.Join(event.Options, ", ")))
		}
		e.print(promptStyle.Render("  Answer: "))
		e.notifyRequest()
	case types.EventTypeConfirmationTimeout:
		e.clearPending(event.RequestID)
		e.println(warningStyle.Render("\n⏱ No answer in time, the action was refused."))
	case types.EventTypeConfirmationGranted, types.EventTypeConfirmationRejected, types.EventTypeQuestionAnswered:
		e.clearPending(event.RequestID)
	case types.EventTypeError:
		e.renderError(event.Error)
	}
}

func formatInput(input map[string]interface{}) string {
	if len(input) == 0 {
		return ""
	}
	parts := make([]string, 0, len(input))
	for _, key := range []string{"url", "index", "selector", "text", "value", "direction", "query", "question"} {
		if v, ok := input[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func (e *Executor) renderResult(result *task.Result) {
	if result == nil {
		return
	}
	style := successStyle
	icon := "✔"
	switch result.Status {
	case task.StatusFailed:
		style, icon = errorStyle, "✖"
	case task.StatusCancelled:
		style, icon = warningStyle, "■"
	}

	e.println("")
	e.println(style.Render(fmt.Sprintf("%s Task %s", icon, result.Status)))
	if result.Summary != "" {
		e.println(result.Summary)
	}
	if result.Error != "" {
		e.println(errorStyle.Render(result.Error))
	}
	if data, ok := result.Data["result"].(string); ok && data != "" {
		e.println(resultBoxStyle.Render(data))
	}
	e.println(tipsStyle.Render(fmt.Sprintf("%d iterations, %d actions, %d+%d tokens, $%.4f, %s",
		result.Iterations, result.Actions, result.InputTokens, result.OutputTokens, result.CostUSD, result.Duration.Round(10*time.Millisecond))))
	e.println("")
}

// RenderStats prints the outcome counts of the session. Nothing is printed
// when no task finished.
func (e *Executor) RenderStats(stats task.Stats) {
	if stats.Total == 0 {
		return
	}
	e.println(tipsStyle.Render(fmt.Sprintf("Session: %d tasks, %d completed, %d failed, %d cancelled (%.0f%% success)",
		stats.Total, stats.Completed, stats.Failed, stats.Cancelled, stats.SuccessRate*100)))
}

func (e *Executor) renderError(err error) {
	if err == nil {
		return
	}
	e.println(errorStyle.Render(fmt.Sprintf("\n❌ Error: %v", err)))
}

func (e *Executor) notifyRequest() {
	select {
	case e.requests <- struct{}{}:
	default:
	}
}

func (e *Executor) setPending(p *pendingPrompt) {
	e.mu.Lock()
	e.pending = p
	e.mu.Unlock()
}

func (e *Executor) takePending() *pendingPrompt {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pending
	e.pending = nil
	return p
}

func (e *Executor) clearPending(requestID string) {
	e.mu.Lock()
	if e.pending != nil && e.pending.requestID == requestID {
		e.pending = nil
	}
	e.mu.Unlock()
}

func (e *Executor) println(s string) {
	e.writeMu.Lock()
	fmt.Fprintln(e.writer, s)
	e.writeMu.Unlock()
}

func (e *Executor) print(s string) {
	e.writeMu.Lock()
	fmt.Fprint(e.writer, s)
	e.writeMu.Unlock()
}
