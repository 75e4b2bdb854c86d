package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const (
	statusSuccess        = "success"
	statusFailed         = "failed"
	statusPartialSuccess = "partial_success"
	statusCancelled      = "cancelled"
)

// Runner runs one task. *agent.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, description string) (*task.Result, error)
}

// Executor implements the headless mode executor
type Executor struct {
	config         *Config
	constraintMgr  *ConstraintManager
	artifactWriter *ArtifactWriter
	logger         *Logger

	// Execution state
	summary   *ExecutionSummary
	cancelRun context.CancelFunc
	limitErr  error
	mu        sync.Mutex
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithOutput sends progress output to w instead of stdout.
func WithOutput(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.logger.writer = w
	}
}

// NewExecutor creates a headless executor for config. Register its
// HandleEvent with the orchestrator, use it as the risk gate's Confirmer
// and wrap the Actuator with Constrain before calling Run.
func NewExecutor(config *Config, opts ...ExecutorOption) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	constraintMgr, err := NewConstraintManager(config.Constraints, config.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create constraint manager: %w", err)
	}

	e := &Executor{
		config:         config,
		constraintMgr:  constraintMgr,
		artifactWriter: NewArtifactWriter(config.Artifacts.OutputDir),
		logger:         NewLogger(parseLogLevel(config.Logging.Verbosity)),
		summary: &ExecutionSummary{
			Task:   config.Task,
			Status: "running",
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Confirm answers a risk confirmation according to the auto_approve
// setting. It implements risk.Confirmer.
func (e *Executor) Confirm(_ context.Context, description, reason string) (bool, error) {
	approved := e.config.AutoApprove

	e.mu.Lock()
	e.summary.Confirmations = append(e.summary.Confirmations, Confirmation{
		Action:   description,
		Reason:   reason,
		Approved: approved,
	})
	e.mu.Unlock()

	if approved {
		e.logger.Warningf("auto-approved %s (%s)", description, reason)
	} else {
		e.logger.Warningf("refused %s (%s); set auto_approve to allow it", description, reason)
	}
	return approved, nil
}

// HandleEvent records agent events for the summary and reports progress.
func (e *Executor) HandleEvent(event *types.AgentEvent) {
	e.logger.Debugf("event %s", event.Type)

	switch event.Type {
	case types.EventTypeIterationStart:
		n, _ := event.Metadata["iteration"].(int)
		limit, _ := event.Metadata["max_iterations"].(int)
		e.logger.Iteration(n, limit)

	case types.EventTypeThinkingContent:
		e.logger.Verbosef("%s", event.Content)

	case types.EventTypeToolCall:
		e.mu.Lock()
		e.summary.Metrics.ToolCalls++
		e.summary.Actions = append(e.summary.Actions, ActionRecord{Tool: event.ToolName, Input: event.ToolInput})
		count := e.summary.Metrics.ToolCalls
		e.mu.Unlock()
		e.logger.ToolCall(event.ToolName, event.ToolInput, count)

	case types.EventTypeToolResult:
		output := fmt.Sprint(event.ToolOutput)
		e.finishAction(event.ToolName, true, output)
		e.logger.ToolResult(event.ToolName, true, output)

	case types.EventTypeToolResultError:
		msg := ""
		if event.Error != nil {
			msg = event.Error.Error()
		}
		e.finishAction(event.ToolName, false, msg)
		e.logger.ToolResult(event.ToolName, false, msg)

	case types.EventTypeLoopDetected:
		e.logger.Warningf("repeated action: %s", event.Content)

	case types.EventTypeCostWarning:
		e.logger.Warningf("task cost $%.4f passed $%.4f", event.Metadata["total_cost_usd"], event.Metadata["threshold_usd"])

	case types.EventTypeTokenUsage:
		if event.TokenUsage == nil {
			return
		}
		if err := e.constraintMgr.RecordTokenUsage(event.TokenUsage.TotalTokens); err != nil {
			e.logger.Errorf("token limit exceeded: %v", err)
			e.stop(err)
		}

	case types.EventTypeError:
		if event.Error != nil {
			e.logger.Errorf("%v", event.Error)
		}
	}
}

// finishAction fills in the latest open record for tool.
func (e *Executor) finishAction(tool string, success bool, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.summary.Actions) - 1; i >= 0; i-- {
		a := &e.summary.Actions[i]
		if a.Tool != tool || a.Output != "" || a.Error != "" {
			continue
		}
		a.Success = success
		if success {
			a.Output = message
		} else {
			a.Error = message
		}
		return
	}
}

// stop ends the run early because a constraint was violated.
func (e *Executor) stop(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.limitErr != nil {
		return
	}
	e.limitErr = err
	if e.cancelRun != nil {
		e.cancelRun()
	}
}

// Run executes the configured task and writes the artifacts. It returns
// an error when the run failed.
func (e *Executor) Run(ctx context.Context, runner Runner) (*ExecutionSummary, error) {
	e.summary.StartTime = time.Now()

	e.logger.Header("Browser Agent Headless Run")
	e.logger.Infof("Task: %s", e.config.Task)
	e.logger.Infof("Mode: %s", e.config.Mode)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancelRun = cancel
	e.mu.Unlock()

	result, err := runner.Run(runCtx, e.config.Task)
	if err != nil {
		return e.summary, e.fail(fmt.Errorf("failed to start task: %w", err))
	}

	return e.summary, e.finalize(ctx, result)
}

// finalize maps the task result onto the summary
func (e *Executor) finalize(ctx context.Context, result *task.Result) error {
	e.mu.Lock()
	limitErr := e.limitErr
	s := e.summary
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.Summary = result.Summary
	s.Data = result.Data
	if r, ok := result.Data["result"].(string); ok {
		s.Result = r
	}
	s.Metrics.Iterations = result.Iterations
	s.Metrics.Actions = result.Actions
	s.Metrics.InputTokens = result.InputTokens
	s.Metrics.OutputTokens = result.OutputTokens
	s.Metrics.TokensUsed = result.InputTokens + result.OutputTokens
	s.Metrics.CostUSD = result.CostUSD
	s.Violations = e.constraintMgr.GetCurrentState().Violations

	switch {
	case limitErr != nil:
		s.Status = statusFailed
		s.Error = fmt.Sprintf("Token limit constraint violated: %v", limitErr)
	case result.Status == task.StatusCompleted && isPartial(result):
		s.Status = statusPartialSuccess
	case result.Status == task.StatusCompleted && result.Success:
		s.Status = statusSuccess
	case result.Status == task.StatusCancelled:
		s.Status = statusCancelled
		if ctx.Err() != nil {
			s.Error = "execution canceled"
		}
	default:
		s.Status = statusFailed
		s.Error = result.Error
		if s.Error == "" {
			s.Error = result.Summary
		}
	}
	e.mu.Unlock()

	e.writeArtifacts()
	e.logger.Summary(s)

	switch s.Status {
	case statusFailed:
		return fmt.Errorf("execution failed: %s", s.Error)
	case statusCancelled:
		return errors.New("execution canceled")
	}
	return nil
}

func isPartial(result *task.Result) bool {
	partial, _ := result.Data["partial"].(bool)
	return partial
}

// fail marks the execution as failed and returns an error
func (e *Executor) fail(err error) error {
	e.mu.Lock()
	e.summary.Status = statusFailed
	e.summary.Error = err.Error()
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.summary.StartTime)
	e.mu.Unlock()

	e.writeArtifacts()
	e.logger.Summary(e.summary)
	return err
}

func (e *Executor) writeArtifacts() {
	if !e.config.Artifacts.Enabled {
		return
	}
	if err := e.artifactWriter.WriteAll(e.summary); err != nil {
		e.logger.Warningf("failed to write artifacts: %v", err)
		return
	}
	e.logger.Infof("Artifacts written to %s", e.config.Artifacts.OutputDir)
}
