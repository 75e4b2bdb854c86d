package task

import "fmt"

// ConflictError is returned when a new Task is set while another one is
// still non-terminal.
type ConflictError struct {
	ActiveID     string
	ActiveStatus Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task %s is still %s", e.ActiveID, e.ActiveStatus)
}

// PreconditionError is returned when an operation is invalid in the current
// state.
type PreconditionError struct {
	Op      string
	Current Status
	Message string
}

func (e *PreconditionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: not allowed in status %q", e.Op, e.Current)
}

// BudgetKind identifies which budget ceiling was reached.
type BudgetKind string

const (
	BudgetIterations BudgetKind = "iterations"
	BudgetTimeout    BudgetKind = "timeout"
	BudgetCost       BudgetKind = "cost"
)

// BudgetExceeded reports that a task ran into one of its ceilings. A run that
// exceeds its budget ends through Complete with a partial summary.
type BudgetExceeded struct {
	Details map[string]interface{}
	Kind    BudgetKind
	Message string
}

func (e *BudgetExceeded) Error() string {
	return fmt.Sprintf("budget exceeded (%s): %s", e.Kind, e.Message)
}
