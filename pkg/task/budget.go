package task

import (
	"fmt"
	"time"
)

// Budget bounds a single run. Every field must be set explicitly; a zero
// MaxIterations, Timeout or MaxCostUSD disables that ceiling.
type Budget struct {
	MaxIterations int
	Timeout       time.Duration
	MaxCostUSD    float64
	// WarnCostUSD fires a single warning when crossed.
	WarnCostUSD float64
}

// Validate checks the budget for inconsistent values.
func (b Budget) Validate() error {
	if b.MaxIterations < 0 {
		return fmt.Errorf("max iterations must be non-negative")
	}
	if b.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if b.MaxCostUSD < 0 || b.WarnCostUSD < 0 {
		return fmt.Errorf("cost limits must be non-negative")
	}
	if b.MaxCostUSD > 0 && b.WarnCostUSD > b.MaxCostUSD {
		return fmt.Errorf("warn cost (%.2f) exceeds max cost (%.2f)", b.WarnCostUSD, b.MaxCostUSD)
	}
	return nil
}

// usage accumulates consumption for the current task.
type usage struct {
	inputTokens  int
	outputTokens int
	costUSD      float64
	warned       bool
}

func (m *Machine) checkTimeoutLocked() error {
	if m.budget.Timeout <= 0 || m.current == nil || m.current.StartedAt.IsZero() {
		return nil
	}
	elapsed := m.now().Sub(m.current.StartedAt)
	if elapsed < m.budget.Timeout {
		return nil
	}
	return &BudgetExceeded{
		Kind:    BudgetTimeout,
		Message: fmt.Sprintf("execution time %s exceeded limit %s", elapsed.Round(time.Second), m.budget.Timeout),
		Details: map[string]interface{}{
			"elapsed": elapsed.String(),
			"limit":   m.budget.Timeout.String(),
		},
	}
}

// CheckTimeout returns a BudgetExceeded error once the wall-clock limit has
// elapsed since Start.
func (m *Machine) CheckTimeout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkTimeoutLocked()
}

// AddUsage accumulates token counts and cost of one backend call and
// returns the running cost total.
func (m *Machine) AddUsage(inputTokens, outputTokens int, costUSD float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.inputTokens += inputTokens
	m.usage.outputTokens += outputTokens
	m.usage.costUSD += costUSD
	return m.usage.costUSD
}

// CheckCost returns a BudgetExceeded error when the accumulated cost has
// reached the ceiling.
func (m *Machine) CheckCost() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.budget.MaxCostUSD <= 0 || m.usage.costUSD < m.budget.MaxCostUSD {
		return nil
	}
	return &BudgetExceeded{
		Kind:    BudgetCost,
		Message: fmt.Sprintf("cost limit reached ($%.4f >= $%.2f)", m.usage.costUSD, m.budget.MaxCostUSD),
		Details: map[string]interface{}{
			"cost_usd": m.usage.costUSD,
			"limit":    m.budget.MaxCostUSD,
		},
	}
}

// CostWarning reports true exactly once, the first time the accumulated
// cost reaches the warning threshold.
func (m *Machine) CostWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.budget.WarnCostUSD <= 0 || m.usage.warned || m.usage.costUSD < m.budget.WarnCostUSD {
		return false
	}
	m.usage.warned = true
	return true
}

// Usage returns the accumulated token counts and cost of the current task.
func (m *Machine) Usage() (inputTokens, outputTokens int, costUSD float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage.inputTokens, m.usage.outputTokens, m.usage.costUSD
}

// IterationLimitError builds the BudgetExceeded error reported when the
// iteration ceiling is reached.
func (m *Machine) IterationLimitError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &BudgetExceeded{
		Kind:    BudgetIterations,
		Message: fmt.Sprintf("iteration limit reached (%d)", m.budget.MaxIterations),
		Details: map[string]interface{}{"limit": m.budget.MaxIterations},
	}
}
