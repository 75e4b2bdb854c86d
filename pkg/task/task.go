// Package task holds the lifecycle of a single browser task: its status
// transitions, its final Result and the iteration, time and cost budget the
// run loop is held to.
package task

import "time"

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRunning      Status = "running"
	StatusWaitingInput Status = "waiting_input"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// transitions lists the allowed edges. Terminal states have none.
var transitions = map[Status][]Status{
	StatusIdle:         {StatusRunning, StatusCompleted, StatusFailed, StatusCancelled},
	StatusRunning:      {StatusWaitingInput, StatusCompleted, StatusFailed, StatusCancelled},
	StatusWaitingInput: {StatusRunning, StatusCompleted, StatusFailed, StatusCancelled},
}

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsActive reports whether a run loop should keep going in this status.
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusWaitingInput
}

// CanTransitionTo reports whether the edge s -> next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Task is one unit of user-requested work.
type Task struct {
	CreatedAt       time.Time
	StartedAt       time.Time
	CompletedAt     time.Time
	Result          *Result
	ID              string
	Description     string
	PendingQuestion string
	Status          Status
	Iterations      int
}

// Result is the immutable outcome attached to a Task when it reaches a
// terminal status.
type Result struct {
	Data         map[string]interface{} `json:"data,omitempty"`
	Summary      string                 `json:"summary"`
	Error        string                 `json:"error,omitempty"`
	Status       Status                 `json:"status"`
	Duration     time.Duration          `json:"duration"`
	CostUSD      float64                `json:"cost_usd"`
	Iterations   int                    `json:"iterations"`
	Actions      int                    `json:"actions"`
	InputTokens  int                    `json:"input_tokens"`
	OutputTokens int                    `json:"output_tokens"`
	Success      bool                   `json:"success"`
}

func (t *Task) clone() *Task {
	c := *t
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	return &c
}
