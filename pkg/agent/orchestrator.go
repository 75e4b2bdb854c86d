package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	agentcontext "github.com/Lappy000/Browser-Agent-AI/pkg/agent/context"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/extraction"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/history"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/loopdetect"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/prompts"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm/tokenizer"
	"github.com/Lappy000/Browser-Agent-AI/pkg/security/risk"
	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
	"github.com/Lappy000/Browser-Agent-AI/pkg/usage"
)

// Orchestrator runs browser tasks one at a time. Run calls are serialized;
// every per-run structure is reset when a run starts.
type Orchestrator struct {
	backend  llm.Backend
	actuator Actuator
	observer PageObserver
	answerer Answerer
	ledger   Ledger
	gate     *risk.Gate
	cost     usage.CostFunc
	onEvent  EventHandler
	now      func() time.Time

	tokenizer *tokenizer.Tokenizer
	machine   *task.Machine
	assembler *agentcontext.Assembler
	detector  *loopdetect.Detector
	guard     *extraction.Guard
	history   *history.History

	assemblerCfg       agentcontext.Config
	extractionOpts     []extraction.Option
	schemas            []types.ToolSchema
	systemPrompt       string
	customInstructions string
	sessionID          string
	budget             task.Budget
	loopRepetitions    int
	loopWindow         int

	// Per-run state, owned by the goroutine inside Run.
	taskID    string
	snapshot  *types.Snapshot
	forceShot bool

	stats   TokenStats
	statsMu sync.Mutex
	runMu   sync.Mutex
}

// New creates an Orchestrator. The backend, actuator and observer are
// required.
func New(backend llm.Backend, actuator Actuator, observer PageObserver, opts ...Option) (*Orchestrator, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if actuator == nil || observer == nil {
		return nil, errors.New("actuator and page observer are required")
	}

	o := &Orchestrator{
		backend:  backend,
		actuator: actuator,
		observer: observer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.cost == nil {
		o.cost = usage.Pricer(nil)
	}
	if o.gate == nil {
		gate, err := risk.New(risk.Config{}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create risk gate: %w", err)
		}
		o.gate = gate
	}

	machine, err := task.NewMachine(o.budget,
		task.WithClock(o.now),
		task.WithStatusListener(o.onStatusChange),
	)
	if err != nil {
		return nil, err
	}
	o.machine = machine

	cfg := o.assemblerCfg
	cfg.Shape = backend.Shape()
	o.assembler = agentcontext.New(cfg, o.tokenizer)

	var detectorOpts []loopdetect.Option
	if o.loopRepetitions > 0 {
		detectorOpts = append(detectorOpts, loopdetect.WithRepetitions(o.loopRepetitions))
	}
	if o.loopWindow > 0 {
		detectorOpts = append(detectorOpts, loopdetect.WithWindow(o.loopWindow))
	}
	o.detector = loopdetect.New(detectorOpts...)
	o.guard = extraction.New(o.extractionOpts...)
	o.history = history.New()

	o.schemas = tools.Schemas()
	o.systemPrompt = prompts.NewPromptBuilder().
		WithTools(o.schemas).
		WithCustomInstructions(o.customInstructions).
		Build()

	return o, nil
}

// Machine exposes the task state machine for status queries and history.
func (o *Orchestrator) Machine() *task.Machine {
	return o.machine
}

// History returns the action log of the current or last run.
func (o *Orchestrator) History() *history.History {
	return o.history
}

// TokenStats returns the consumption of the current or last run.
func (o *Orchestrator) TokenStats() TokenStats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.stats
}

// Run executes one task to a terminal status. A run that fails, times out
// or is cancelled still returns its Result; the error is reserved for runs
// that could not start.
func (o *Orchestrator) Run(ctx context.Context, description string) (*task.Result, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.New("task description is empty")
	}

	o.reset()
	t, err := o.machine.SetTask(description)
	if err != nil {
		return nil, err
	}
	o.taskID = t.ID
	o.emit(types.NewTaskStartEvent(t.ID, description))

	if err := o.machine.Start(); err != nil {
		return nil, err
	}
	agentDebugLog.Infof("Task %s started: %s", t.ID, description)

	runCtx := ctx
	if o.budget.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.budget.Timeout)
		defer cancel()
	}

	result, err := o.loop(runCtx, ctx, description)
	if err != nil {
		return nil, err
	}

	agentDebugLog.Infof("Task %s finished: status=%s iterations=%d actions=%d cost=$%.4f",
		t.ID, result.Status, result.Iterations, result.Actions, result.CostUSD)
	o.recordRun(ctx, t, result)
	o.emit(types.NewTaskEndEvent(t.ID, string(result.Status), result.Summary))
	return result, nil
}

// reset clears every per-run structure.
func (o *Orchestrator) reset() {
	o.assembler.Reset()
	o.detector.Reset()
	o.guard.Clear()
	o.history.Reset()
	o.snapshot = nil
	o.forceShot = false
	o.taskID = ""

	o.statsMu.Lock()
	o.stats = TokenStats{}
	o.statsMu.Unlock()
}

// loop drives iterations until the machine reaches a terminal status. Only
// state machine violations are returned as errors.
func (o *Orchestrator) loop(ctx, parent context.Context, description string) (*task.Result, error) {
	extractionTask := o.guard.IsExtractionTask(description)

	if err := o.observer.EnsurePage(ctx); err != nil {
		if ctx.Err() != nil {
			return o.interrupted(ctx, parent, ctx.Err())
		}
		return o.machine.Fail(fmt.Sprintf("browser is not available: %v", err))
	}

	for o.machine.Status().IsActive() {
		if err := o.machine.CheckTimeout(); err != nil {
			return o.completePartial(err)
		}
		if ctx.Err() != nil {
			return o.interrupted(ctx, parent, ctx.Err())
		}

		iteration := o.machine.Iterations() + 1
		o.emit(types.NewIterationStartEvent(iteration, o.budget.MaxIterations))

		resp, err := o.step(ctx, description, iteration)
		if err != nil {
			return o.stepFailed(ctx, parent, err)
		}

		if err := o.machine.CheckCost(); err != nil {
			return o.completePartial(err)
		}

		if !resp.HasToolCalls() {
			o.noToolCall(resp.Text)
		} else {
			outcome, err := o.runTurn(ctx, resp)
			if err != nil {
				return o.stepFailed(ctx, parent, err)
			}
			if outcome.completion != nil {
				return o.finalize(*outcome.completion, extractionTask)
			}
		}

		if o.machine.IncrementIteration() {
			return o.completePartial(o.machine.IterationLimitError())
		}
	}

	// The machine only leaves the active states through the calls above.
	if cur := o.machine.Current(); cur != nil && cur.Result != nil {
		r := *cur.Result
		return &r, nil
	}
	return o.machine.Fail("task ended without a result")
}

// step observes the page, appends the prompt and calls the backend.
func (o *Orchestrator) step(ctx context.Context, description string, iteration int) (*llm.Response, error) {
	o.snapshot = o.observe(ctx)

	prompt, err := o.assembler.RenderPrompt(ctx, agentcontext.PromptInput{
		Snapshot:         o.snapshot,
		Task:             description,
		History:          o.history.Summaries(o.assembler.HistoryLines()),
		Iteration:        iteration,
		MaxIterations:    o.budget.MaxIterations,
		LastActionFailed: o.history.LastFailed(),
		ForceScreenshot:  o.forceShot,
	}, o.observer)
	if err != nil {
		return nil, err
	}
	o.forceShot = false
	o.assembler.Append(prompt)

	msgs := o.assembler.History()
	o.emit(types.NewAPICallStartEvent(o.backend.Provider(), len(msgs)))
	resp, err := o.backend.Send(ctx, &llm.Request{
		SystemPrompt: o.systemPrompt,
		History:      msgs,
		Tools:        o.schemas,
	})
	o.emit(types.NewAPICallEndEvent(o.backend.Provider()))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &llm.ProtocolFault{Reason: "backend returned no response"}
	}

	o.recordUsage(ctx, resp, iteration)
	return resp, nil
}

// observe returns the current snapshot. An observation failure degrades to
// a bare snapshot so the model can still act, for example by navigating.
func (o *Orchestrator) observe(ctx context.Context) *types.Snapshot {
	snap, err := o.observer.Observe(ctx)
	if err != nil || snap == nil {
		agentDebugLog.Warnf("Page observation failed: %v", err)
		return &types.Snapshot{CapturedAt: o.now()}
	}
	return snap
}

func (o *Orchestrator) recordUsage(ctx context.Context, resp *llm.Response, iteration int) {
	in, out := resp.Usage.InputTokens, resp.Usage.OutputTokens
	cost := o.cost(o.backend.Model(), in, out)
	total := o.machine.AddUsage(in, out, cost)

	o.statsMu.Lock()
	o.stats.InputTokens += in
	o.stats.OutputTokens += out
	o.stats.TotalTokens += in + out
	o.stats.CostUSD = total
	o.statsMu.Unlock()

	agentDebugLog.Debugf("Iteration %d: input=%d output=%d cost=$%.4f total=$%.4f", iteration, in, out, cost, total)
	o.emit(types.NewTokenUsageEvent(in, out, cost, total))

	if o.ledger != nil {
		err := o.ledger.Record(ctx, usage.Record{
			Timestamp:    o.now(),
			SessionID:    o.sessionID,
			TaskID:       o.taskID,
			Model:        o.backend.Model(),
			Provider:     o.backend.Provider(),
			Iteration:    iteration,
			InputTokens:  in,
			OutputTokens: out,
			CostUSD:      cost,
		})
		if err != nil {
			agentDebugLog.Warnf("Failed to record usage: %v", err)
		}
	}

	if o.machine.CostWarning() {
		agentDebugLog.Warnf("Cost warning: $%.4f >= $%.2f threshold", total, o.budget.WarnCostUSD)
		o.emit(types.NewCostWarningEvent(total, o.budget.WarnCostUSD))
	}
}

// noToolCall keeps a text-only reply in the history. The model is expected
// to call a tool every turn, so this is logged as a policy violation.
func (o *Orchestrator) noToolCall(text string) {
	agentDebugLog.Warnf("Model replied without a tool call: %s", clip(text, 100))
	o.emit(types.NewNoToolCallEvent(text))
	if strings.TrimSpace(text) != "" {
		o.assembler.Append(types.NewAssistantMessage(text, nil))
	}
}

// stepFailed maps an error of a backend call or a turn onto the terminal
// status.
func (o *Orchestrator) stepFailed(ctx, parent context.Context, err error) (*task.Result, error) {
	if ctx.Err() != nil {
		return o.interrupted(ctx, parent, err)
	}

	var fault *llm.ProtocolFault
	var backendErr *llm.BackendError
	switch {
	case errors.As(err, &fault):
		agentDebugLog.Errorf("Protocol fault: %v", err)
		o.emit(types.NewErrorEvent(err))
		return o.machine.Fail(fault.Error())
	case errors.As(err, &backendErr):
		agentDebugLog.Errorf("Backend error: %v", err)
		o.emit(types.NewErrorEvent(err))
		return o.machine.Fail(fmt.Sprintf("LLM error: %v", backendErr))
	default:
		agentDebugLog.Errorf("Run aborted: %v", err)
		o.emit(types.NewErrorEvent(err))
		return o.machine.Fail(err.Error())
	}
}

// interrupted ends a run whose context is done: a cancelled parent cancels
// the task, an elapsed deadline completes it with a partial summary.
func (o *Orchestrator) interrupted(ctx, parent context.Context, err error) (*task.Result, error) {
	if parent.Err() != nil {
		agentDebugLog.Infof("Task %s cancelled: %v", o.taskID, err)
		return o.machine.Cancel()
	}
	if timeoutErr := o.machine.CheckTimeout(); timeoutErr != nil {
		return o.completePartial(timeoutErr)
	}
	return o.completePartial(&task.BudgetExceeded{
		Kind:    task.BudgetTimeout,
		Message: fmt.Sprintf("execution time exceeded limit %s", o.budget.Timeout),
		Details: map[string]interface{}{"limit": o.budget.Timeout.String()},
	})
}

// completePartial ends the task successfully with a summary of what was
// done before a budget ceiling was reached. Extracted data still pending is
// handed out as the result.
func (o *Orchestrator) completePartial(reason error) (*task.Result, error) {
	stop := reason.Error()
	data := map[string]interface{}{"partial": true}
	var exceeded *task.BudgetExceeded
	if errors.As(reason, &exceeded) {
		stop = exceeded.Message
		data["stop_reason"] = string(exceeded.Kind)
	}
	agentDebugLog.Warnf("Task %s stopped early: %s", o.taskID, stop)

	var b strings.Builder
	fmt.Fprintf(&b, "Task interrupted: %s (%d iterations, %d actions)", stop, o.machine.Iterations(), o.history.Len())
	if recent := o.history.Summaries(3); len(recent) > 0 {
		b.WriteString("\nLast actions:\n")
		b.WriteString(strings.Join(recent, "\n"))
	}

	if res := o.guard.Resolve("", true); res.Substituted {
		data["result"] = res.Result
	}
	return o.machine.Complete(b.String(), data)
}

// finalize resolves the completion result and ends the task per the
// model's success flag.
func (o *Orchestrator) finalize(in tools.CompleteTaskInput, extractionTask bool) (*task.Result, error) {
	res := o.guard.Resolve(in.Result, extractionTask)
	switch {
	case res.Substituted:
		agentDebugLog.Infof("Using stored extracted data (%d chars) instead of incomplete result", len(res.Result))
	case res.Short:
		agentDebugLog.Warnf("Result seems short for a data extraction task (%d chars): %s", len(res.Result), clip(res.Result, 100))
	}

	summary := in.Summary
	if summary == "" {
		summary = "Task completed"
	}
	if !in.Succeeded() {
		return o.machine.Fail(summary)
	}

	var data map[string]interface{}
	if res.Result != "" {
		data = map[string]interface{}{"result": res.Result}
	}
	return o.machine.Complete(summary, data)
}

func (o *Orchestrator) recordRun(ctx context.Context, t *task.Task, result *task.Result) {
	if o.ledger == nil {
		return
	}
	// The run context may already be cancelled; the outcome is still written.
	err := o.ledger.RecordTaskRun(context.WithoutCancel(ctx), usage.TaskRun{
		StartedAt:    t.CreatedAt,
		ID:           t.ID,
		SessionID:    o.sessionID,
		Description:  t.Description,
		Status:       string(result.Status),
		Summary:      result.Summary,
		Duration:     result.Duration,
		Iterations:   result.Iterations,
		Actions:      result.Actions,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		CostUSD:      result.CostUSD,
	})
	if err != nil {
		agentDebugLog.Warnf("Failed to record task run: %v", err)
	}
}

func (o *Orchestrator) onStatusChange(t *task.Task, from, to task.Status) {
	agentDebugLog.Debugf("Task %s: %s -> %s", t.ID, from, to)
	o.emit(types.NewTaskStatusEvent(t.ID, string(to)))
}

func (o *Orchestrator) emit(event *types.AgentEvent) {
	if o.onEvent == nil {
		return
	}
	if event.TaskID == "" {
		event.TaskID = o.taskID
	}
	o.onEvent(event)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
