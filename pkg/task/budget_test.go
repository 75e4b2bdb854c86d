package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetValidate(t *testing.T) {
	tests := []struct {
		name    string
		budget  Budget
		wantErr bool
	}{
		{name: "zero budget", budget: Budget{}},
		{name: "full budget", budget: Budget{MaxIterations: 40, Timeout: 10 * time.Minute, MaxCostUSD: 0.5, WarnCostUSD: 0.25}},
		{name: "negative iterations", budget: Budget{MaxIterations: -1}, wantErr: true},
		{name: "negative timeout", budget: Budget{Timeout: -time.Second}, wantErr: true},
		{name: "warn above max", budget: Budget{MaxCostUSD: 0.5, WarnCostUSD: 0.6}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budget.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckTimeout(t *testing.T) {
	m, clock := newTestMachine(t, Budget{Timeout: time.Minute})
	_, err := m.SetTask("task")
	require.NoError(t, err)

	// not started yet
	assert.NoError(t, m.CheckTimeout())

	require.NoError(t, m.Start())
	clock.Advance(59 * time.Second)
	assert.NoError(t, m.CheckTimeout())

	clock.Advance(time.Second)
	err = m.CheckTimeout()
	var be *BudgetExceeded
	require.ErrorAs(t, err, &be)
	assert.Equal(t, BudgetTimeout, be.Kind)
}

func TestCostCeilingAndWarning(t *testing.T) {
	m, _ := newTestMachine(t, Budget{MaxCostUSD: 0.5, WarnCostUSD: 0.25})
	_, err := m.SetTask("task")
	require.NoError(t, err)
	require.NoError(t, m.Start())

	total := m.AddUsage(10000, 1000, 0.2)
	assert.InDelta(t, 0.2, total, 1e-9)
	assert.False(t, m.CostWarning())
	assert.NoError(t, m.CheckCost())

	m.AddUsage(10000, 1000, 0.1)
	assert.True(t, m.CostWarning())
	assert.False(t, m.CostWarning(), "warning fires only once")
	assert.NoError(t, m.CheckCost())

	m.AddUsage(10000, 1000, 0.2)
	err = m.CheckCost()
	var be *BudgetExceeded
	require.ErrorAs(t, err, &be)
	assert.Equal(t, BudgetCost, be.Kind)
	assert.Contains(t, be.Message, "$0.50")

	in, out, cost := m.Usage()
	assert.Equal(t, 30000, in)
	assert.Equal(t, 3000, out)
	assert.InDelta(t, 0.5, cost, 1e-9)
}

func TestDisabledCeilings(t *testing.T) {
	m, clock := newTestMachine(t, Budget{})
	_, err := m.SetTask("task")
	require.NoError(t, err)
	require.NoError(t, m.Start())

	clock.Advance(24 * time.Hour)
	m.AddUsage(1, 1, 100)
	assert.NoError(t, m.CheckTimeout())
	assert.NoError(t, m.CheckCost())
	assert.False(t, m.CostWarning())
	assert.False(t, m.IncrementIteration())
}

func TestIterationLimitError(t *testing.T) {
	m, _ := newTestMachine(t, Budget{MaxIterations: 7})
	var be *BudgetExceeded
	require.ErrorAs(t, m.IterationLimitError(), &be)
	assert.Equal(t, BudgetIterations, be.Kind)
	assert.Contains(t, be.Error(), "7")
}
