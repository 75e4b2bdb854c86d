package mcpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
)

type runFunc func(ctx context.Context, description string) (*task.Result, error)

func (f runFunc) Run(ctx context.Context, description string) (*task.Result, error) {
	return f(ctx, description)
}

func TestRunTask(t *testing.T) {
	s := New(runFunc(func(_ context.Context, description string) (*task.Result, error) {
		assert.Equal(t, "find the Pro plan price on example.com", description)
		return &task.Result{
			Status:       task.StatusCompleted,
			Success:      true,
			Summary:      "Found it",
			Data:         map[string]interface{}{"result": "$49/mo"},
			Iterations:   4,
			Actions:      5,
			InputTokens:  3000,
			OutputTokens: 200,
			CostUSD:      0.012,
			Duration:     1500 * time.Millisecond,
		}, nil
	}), "test")

	res, out, err := s.runTask(context.Background(), nil, RunTaskArgs{Task: "  find the Pro plan price on example.com "})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "completed", out.Status)
	assert.True(t, out.Success)
	assert.False(t, out.Partial)
	assert.Equal(t, "$49/mo", out.Result)
	assert.Equal(t, 5, out.Actions)
	assert.Equal(t, 1.5, out.DurationSeconds)

	_, list, err := s.listRuns(context.Background(), nil, ListRunsArgs{})
	require.NoError(t, err)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, out.ID, list.Runs[0].ID)
	assert.Equal(t, "completed", list.Runs[0].Status)
	assert.Equal(t, "Found it", list.Runs[0].Summary)
}

func TestRunTaskPartial(t *testing.T) {
	s := New(runFunc(func(context.Context, string) (*task.Result, error) {
		return &task.Result{
			Status:  task.StatusCompleted,
			Success: true,
			Summary: "Task interrupted: cost limit reached",
			Data:    map[string]interface{}{"partial": true, "stop_reason": "cost"},
		}, nil
	}), "test")

	_, out, err := s.runTask(context.Background(), nil, RunTaskArgs{Task: "collect prices"})
	require.NoError(t, err)
	assert.True(t, out.Partial)
	assert.Empty(t, out.Result)
}

func TestRunTaskRequiresDescription(t *testing.T) {
	s := New(runFunc(func(context.Context, string) (*task.Result, error) {
		t.Error("runner must not be called")
		return nil, nil
	}), "test")

	_, _, err := s.runTask(context.Background(), nil, RunTaskArgs{Task: "   "})
	assert.EqualError(t, err, "task is required")
}

func TestRunTaskStartError(t *testing.T) {
	s := New(runFunc(func(context.Context, string) (*task.Result, error) {
		return nil, errors.New("invalid budget")
	}), "test")

	_, _, err := s.runTask(context.Background(), nil, RunTaskArgs{Task: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid budget")

	_, list, _ := s.listRuns(context.Background(), nil, ListRunsArgs{Status: "failed"})
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "invalid budget", list.Runs[0].Error)
}

func TestRunTaskBusyAndCancel(t *testing.T) {
	started := make(chan struct{})
	s := New(runFunc(func(ctx context.Context, _ string) (*task.Result, error) {
		close(started)
		<-ctx.Done()
		return &task.Result{Status: task.StatusCancelled, Summary: "Task cancelled"}, nil
	}), "test")

	type outcome struct {
		out RunTaskOutput
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		_, out, err := s.runTask(context.Background(), nil, RunTaskArgs{Task: "long task"})
		done <- outcome{out, err}
	}()
	<-started

	_, _, err := s.runTask(context.Background(), nil, RunTaskArgs{Task: "second task"})
	assert.ErrorIs(t, err, ErrBusy)

	_, running, err := s.listRuns(context.Background(), nil, ListRunsArgs{Status: "running"})
	require.NoError(t, err)
	assert.Len(t, running.Runs, 1)

	_, cancelled, err := s.cancelTask(context.Background(), nil, CancelTaskArgs{})
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, "cancelled", got.out.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel_task")
	}

	_, again, err := s.cancelTask(context.Background(), nil, CancelTaskArgs{})
	require.NoError(t, err)
	assert.False(t, again.Cancelled)
}
