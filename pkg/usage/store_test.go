package usage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestRecordAndTaskSummary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	recs := []Record{
		{TaskID: "task-1", SessionID: "sess", Model: "claude-sonnet-4-20250514", Provider: "anthropic", Iteration: 1, InputTokens: 1000, OutputTokens: 200, CostUSD: 0.006},
		{TaskID: "task-1", SessionID: "sess", Model: "claude-sonnet-4-20250514", Provider: "anthropic", Iteration: 2, InputTokens: 2000, OutputTokens: 300, CostUSD: 0.0105},
		{TaskID: "task-2", SessionID: "sess", Model: "gpt-4o", Provider: "openai", Iteration: 1, InputTokens: 500, OutputTokens: 50, CostUSD: 0.001},
	}
	for _, rec := range recs {
		require.NoError(t, s.Record(ctx, rec))
	}

	sum, err := s.TaskSummary(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalRecords)
	assert.EqualValues(t, 3000, sum.TotalInputTokens)
	assert.EqualValues(t, 500, sum.TotalOutputTokens)
	assert.InDelta(t, 0.0165, sum.TotalCostUSD, 1e-9)

	empty, err := s.TaskSummary(ctx, "nope")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalRecords)

	now := time.Now()
	all, err := s.Summary(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalRecords)

	old, err := s.Summary(ctx, now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, old.TotalRecords)
}

func TestRecordKeepsExplicitID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	rec := Record{ID: "fixed", TaskID: "t", Model: "m", Provider: "p"}
	require.NoError(t, s.Record(ctx, rec))
	assert.Error(t, s.Record(ctx, rec), "duplicate primary key")
}

func TestTaskRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordTaskRun(ctx, TaskRun{ID: "a", StartedAt: base, Description: "first", Status: "completed", Duration: 1500 * time.Millisecond, Iterations: 3}))
	require.NoError(t, s.RecordTaskRun(ctx, TaskRun{ID: "b", StartedAt: base.Add(time.Hour), Description: "second", Status: "failed", CostUSD: 0.02}))
	require.NoError(t, s.RecordTaskRun(ctx, TaskRun{ID: "a", StartedAt: base, Description: "first", Status: "cancelled"}))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)
	assert.Equal(t, "cancelled", runs[1].Status, "replaced by the second record")
	assert.True(t, base.Equal(runs[1].StartedAt))

	assert.Error(t, s.RecordTaskRun(ctx, TaskRun{}))
}

func TestComputeCost(t *testing.T) {
	pricing := map[string]config.PricingEntry{
		"cheap": {InputPerMillion: 0.15, OutputPerMillion: 0.6},
	}
	tests := []struct {
		name  string
		model string
		in    int
		out   int
		want  float64
	}{
		{"known model", "cheap", 1_000_000, 1_000_000, 0.75},
		{"fallback", "unknown", 1000, 200, 0.006},
		{"zero", "cheap", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeCost(tt.model, tt.in, tt.out, pricing), 1e-12)
		})
	}

	price := Pricer(pricing)
	assert.InDelta(t, 0.006, price("unknown", 1000, 200), 1e-12)
}
