package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistorySize is how many finished tasks a Machine remembers.
const DefaultHistorySize = 50

// Machine owns the current Task and enforces its lifecycle. It never ends a
// task on its own: callers react to IncrementIteration, CheckTimeout and
// CheckCost by calling Complete, Fail or Cancel.
type Machine struct {
	current     *Task
	now         func() time.Time
	onChange    func(t *Task, from, to Status)
	history     []*Task
	budget      Budget
	usage       usage
	actions     int
	historySize int
	mu          sync.Mutex
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithHistorySize bounds the number of finished tasks kept.
func WithHistorySize(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.historySize = n
		}
	}
}

// WithStatusListener registers a callback invoked after every status change.
// The callback runs with the machine unlocked and must not block.
func WithStatusListener(fn func(t *Task, from, to Status)) Option {
	return func(m *Machine) {
		m.onChange = fn
	}
}

// NewMachine creates a Machine held to the given budget.
func NewMachine(budget Budget, opts ...Option) (*Machine, error) {
	if err := budget.Validate(); err != nil {
		return nil, fmt.Errorf("invalid budget: %w", err)
	}
	m := &Machine{
		budget:      budget,
		now:         time.Now,
		historySize: DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Budget returns the budget the machine enforces.
func (m *Machine) Budget() Budget {
	return m.budget
}

// SetTask installs a new Task in Idle and resets all counters. It fails with
// a ConflictError while the current Task is not terminal.
func (m *Machine) SetTask(description string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.Status.IsTerminal() {
		return nil, &ConflictError{ActiveID: m.current.ID, ActiveStatus: m.current.Status}
	}

	m.current = &Task{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StatusIdle,
		CreatedAt:   m.now(),
	}
	m.usage = usage{}
	m.actions = 0
	return m.current.clone(), nil
}

// Current returns a copy of the current Task, or nil.
func (m *Machine) Current() *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.clone()
}

// Status returns the status of the current Task, Idle when there is none.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return StatusIdle
	}
	return m.current.Status
}

// Start moves the current Task from Idle to Running.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return &PreconditionError{Op: "start", Current: StatusIdle, Message: "no task set"}
	}
	if m.current.Status != StatusIdle {
		status := m.current.Status
		m.mu.Unlock()
		return &PreconditionError{Op: "start", Current: status}
	}
	m.current.StartedAt = m.now()
	return m.transitionAndUnlock(StatusRunning)
}

// IncrementIteration advances the iteration counter and reports whether the
// configured maximum has been reached.
func (m *Machine) IncrementIteration() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return false
	}
	m.current.Iterations++
	return m.budget.MaxIterations > 0 && m.current.Iterations >= m.budget.MaxIterations
}

// Iterations returns the iteration counter of the current Task.
func (m *Machine) Iterations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.Iterations
}

// RecordAction counts one executed tool invocation.
func (m *Machine) RecordAction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions++
}

// WaitForInput moves Running to WaitingInput and stores the pending question.
func (m *Machine) WaitForInput(question string) error {
	m.mu.Lock()
	if m.current == nil || m.current.Status != StatusRunning {
		status := m.statusLocked()
		m.mu.Unlock()
		return &PreconditionError{Op: "wait for input", Current: status}
	}
	m.current.PendingQuestion = question
	return m.transitionAndUnlock(StatusWaitingInput)
}

// ResumeWithInput moves WaitingInput back to Running, clears the pending
// question and returns the answer unchanged.
func (m *Machine) ResumeWithInput(answer string) (string, error) {
	m.mu.Lock()
	if m.current == nil || m.current.Status != StatusWaitingInput {
		status := m.statusLocked()
		m.mu.Unlock()
		return "", &PreconditionError{Op: "resume", Current: status, Message: "task is not waiting for input"}
	}
	m.current.PendingQuestion = ""
	if err := m.transitionAndUnlock(StatusRunning); err != nil {
		return "", err
	}
	return answer, nil
}

// Complete ends the current Task successfully.
func (m *Machine) Complete(summary string, data map[string]interface{}) (*Result, error) {
	return m.finish("complete", StatusCompleted, Result{
		Success: true,
		Summary: summary,
		Data:    data,
	})
}

// Fail ends the current Task with an error.
func (m *Machine) Fail(reason string) (*Result, error) {
	return m.finish("fail", StatusFailed, Result{
		Summary: "Task failed: " + reason,
		Error:   reason,
	})
}

// Cancel ends the current Task on user request.
func (m *Machine) Cancel() (*Result, error) {
	return m.finish("cancel", StatusCancelled, Result{
		Summary: "Task cancelled by user",
		Error:   "cancelled by user",
	})
}

func (m *Machine) finish(op string, to Status, result Result) (*Result, error) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return nil, &PreconditionError{Op: op, Current: StatusIdle, Message: "no task set"}
	}
	if m.current.Status.IsTerminal() {
		status := m.current.Status
		m.mu.Unlock()
		return nil, &PreconditionError{Op: op, Current: status, Message: "task already finished"}
	}

	now := m.now()
	result.Status = to
	result.Iterations = m.current.Iterations
	result.Actions = m.actions
	result.InputTokens = m.usage.inputTokens
	result.OutputTokens = m.usage.outputTokens
	result.CostUSD = m.usage.costUSD
	if !m.current.StartedAt.IsZero() {
		result.Duration = now.Sub(m.current.StartedAt)
	}
	m.current.CompletedAt = now
	m.current.PendingQuestion = ""
	m.current.Result = &result

	if err := m.transitionAndUnlock(to, m.archiveLocked); err != nil {
		return nil, err
	}
	out := result
	return &out, nil
}

// archiveLocked keeps a copy of the finished task, which already carries its
// terminal status.
func (m *Machine) archiveLocked() {
	m.history = append(m.history, m.current.clone())
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
}

func (m *Machine) statusLocked() Status {
	if m.current == nil {
		return StatusIdle
	}
	return m.current.Status
}

// transitionAndUnlock applies a status change, runs the optional hooks while
// still holding the lock, releases it and then notifies the listener.
func (m *Machine) transitionAndUnlock(to Status, locked ...func()) error {
	from := m.current.Status
	if !from.CanTransitionTo(to) {
		m.mu.Unlock()
		return &PreconditionError{Op: "transition", Current: from, Message: fmt.Sprintf("%s -> %s not allowed", from, to)}
	}
	m.current.Status = to
	for _, fn := range locked {
		fn()
	}
	snapshot := m.current.clone()
	listener := m.onChange
	m.mu.Unlock()

	if listener != nil {
		listener(snapshot, from, to)
	}
	return nil
}

// Stats summarizes finished tasks.
type Stats struct {
	Total       int
	Completed   int
	Failed      int
	Cancelled   int
	SuccessRate float64
}

// History returns copies of the finished tasks, oldest first.
func (m *Machine) History() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Task, 0, len(m.history))
	for _, t := range m.history {
		out = append(out, t.clone())
	}
	return out
}

// Stats returns counts over the finished tasks.
func (m *Machine) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, t := range m.history {
		s.Total++
		switch t.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Completed) / float64(s.Total)
	}
	return s
}
