// Package mcpserver exposes the browser agent as a Model Context Protocol
// server, so that another agent can hand it browser tasks.
//
// Tools:
//   - run_task runs one task to completion and returns its result
//   - cancel_task stops the task that is running
//   - list_runs reports the runs of this server process
//
// The agent drives a single browser, so only one task runs at a time; a
// second run_task while one is in flight is refused rather than queued.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
)

var mcpLog *logging.Logger

func init() {
	var err error
	mcpLog, err = logging.NewLogger("mcp")
	if err != nil {
		mcpLog.Warnf("mcp server logging to stderr: %v", err)
	}
}

// ErrBusy is returned by run_task while another task is running.
var ErrBusy = errors.New("a browser task is already running; wait for it or call cancel_task")

// Runner runs one task. *agent.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, description string) (*task.Result, error)
}

// Server serves the agent over MCP.
type Server struct {
	runner Runner
	server *mcp.Server
	runs   *runStore

	// one task at a time
	busy   sync.Mutex
	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a server around runner.
func New(runner Runner, version string) *Server {
	s := &Server{
		runner: runner,
		runs:   newRunStore(),
		server: mcp.NewServer(&mcp.Implementation{Name: "browser-agent", Version: version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "run_task",
		Description: "Run a task in a real web browser and wait for the outcome. " +
			"Describe the goal in plain language, including the site to use. " +
			"Returns the summary, any extracted data, and usage figures.",
	}, s.runTask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cancel_task",
		Description: "Cancel the browser task that is currently running.",
	}, s.cancelTask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List the browser tasks run by this server, most recent last.",
	}, s.listRuns)

	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	mcpLog.Infof("Serving MCP on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunTaskArgs is the input of run_task.
type RunTaskArgs struct {
	Task string `json:"task" jsonschema:"What the browser agent should do, in plain language"`
}

// RunTaskOutput is the outcome of run_task.
type RunTaskOutput struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Success         bool    `json:"success"`
	Partial         bool    `json:"partial,omitempty"`
	Summary         string  `json:"summary,omitempty"`
	Result          string  `json:"result,omitempty"`
	Error           string  `json:"error,omitempty"`
	Iterations      int     `json:"iterations"`
	Actions         int     `json:"actions"`
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	CostUSD         float64 `json:"cost_usd"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (s *Server) runTask(ctx context.Context, _ *mcp.CallToolRequest, args RunTaskArgs) (*mcp.CallToolResult, RunTaskOutput, error) {
	description := strings.TrimSpace(args.Task)
	if description == "" {
		return nil, RunTaskOutput{}, errors.New("task is required")
	}
	if !s.busy.TryLock() {
		return nil, RunTaskOutput{}, ErrBusy
	}
	defer s.busy.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.setCancel(cancel)
	defer s.setCancel(nil)

	id := s.runs.start(description)
	mcpLog.Infof("run %s: %s", id, description)

	result, err := s.runner.Run(runCtx, description)
	if err != nil {
		s.runs.abort(id, err)
		mcpLog.Warnf("run %s did not start: %v", id, err)
		return nil, RunTaskOutput{}, fmt.Errorf("task did not start: %w", err)
	}

	out := toOutput(id, result)
	s.runs.finish(id, out)
	mcpLog.Infof("run %s finished: %s", id, out.Status)
	return nil, out, nil
}

func toOutput(id string, r *task.Result) RunTaskOutput {
	out := RunTaskOutput{
		ID:              id,
		Status:          string(r.Status),
		Success:         r.Success,
		Summary:         r.Summary,
		Error:           r.Error,
		Iterations:      r.Iterations,
		Actions:         r.Actions,
		InputTokens:     r.InputTokens,
		OutputTokens:    r.OutputTokens,
		CostUSD:         r.CostUSD,
		DurationSeconds: r.Duration.Seconds(),
	}
	if data, ok := r.Data["result"].(string); ok {
		out.Result = data
	}
	out.Partial, _ = r.Data["partial"].(bool)
	return out
}

// CancelTaskArgs is the input of cancel_task.
type CancelTaskArgs struct{}

// CancelTaskOutput reports whether a task was cancelled.
type CancelTaskOutput struct {
	Cancelled bool `json:"cancelled"`
}

func (s *Server) cancelTask(context.Context, *mcp.CallToolRequest, CancelTaskArgs) (*mcp.CallToolResult, CancelTaskOutput, error) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil, CancelTaskOutput{}, nil
	}
	cancel()
	mcpLog.Infof("running task cancelled by client")
	return nil, CancelTaskOutput{Cancelled: true}, nil
}

// ListRunsArgs is the input of list_runs.
type ListRunsArgs struct {
	Status string `json:"status,omitempty" jsonschema:"Only runs with this status: running, completed, failed or cancelled"`
}

// ListRunsOutput lists runs in start order.
type ListRunsOutput struct {
	Runs []RunInfo `json:"runs"`
}

func (s *Server) listRuns(_ context.Context, _ *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, ListRunsOutput, error) {
	return nil, ListRunsOutput{Runs: s.runs.list(args.Status, time.Now())}, nil
}

func (s *Server) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}
