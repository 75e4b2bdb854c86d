// Package usage records model token usage, cost and task runs in SQLite.
// Records are append-only and indexed by timestamp, session and task.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
)

// Fallback prices for models missing from the pricing table.
const (
	FallbackInputPerMillion  = 3.0
	FallbackOutputPerMillion = 15.0
)

// Record is the token usage and cost of one backend call.
type Record struct {
	Timestamp    time.Time
	ID           string
	SessionID    string
	TaskID       string
	Model        string
	Provider     string
	Iteration    int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// TaskRun is the outcome of one task.
type TaskRun struct {
	StartedAt    time.Time
	ID           string
	SessionID    string
	Description  string
	Status       string
	Summary      string
	Duration     time.Duration
	Iterations   int
	Actions      int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Summary holds aggregated token usage and cost totals.
type Summary struct {
	TotalRecords      int
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCostUSD      float64
}

// Store is an append-only SQLite store. All public methods are safe for
// concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with the sqlite3
// driver.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database and creates the schema.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate usage schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id            TEXT PRIMARY KEY,
		timestamp     TEXT NOT NULL,
		session_id    TEXT,
		task_id       TEXT NOT NULL,
		model         TEXT NOT NULL,
		provider      TEXT NOT NULL,
		iteration     INTEGER NOT NULL,
		input_tokens  INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cost_usd      REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_usage_session ON usage_records(session_id);
	CREATE INDEX IF NOT EXISTS idx_usage_task ON usage_records(task_id);

	CREATE TABLE IF NOT EXISTS task_runs (
		id            TEXT PRIMARY KEY,
		started_at    TEXT NOT NULL,
		session_id    TEXT,
		description   TEXT NOT NULL,
		status        TEXT NOT NULL,
		summary       TEXT,
		duration_ms   INTEGER NOT NULL,
		iterations    INTEGER NOT NULL,
		actions       INTEGER NOT NULL,
		input_tokens  INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cost_usd      REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_task_runs_started ON task_runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists a usage record. If rec.ID is empty, a UUIDv7 is
// generated.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate usage record ID: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records
			(id, timestamp, session_id, task_id, model, provider, iteration,
			 input_tokens, output_tokens, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.SessionID,
		rec.TaskID,
		rec.Model,
		rec.Provider,
		rec.Iteration,
		rec.InputTokens,
		rec.OutputTokens,
		rec.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// RecordTaskRun persists the outcome of a task. Recording the same ID
// twice replaces the earlier row.
func (s *Store) RecordTaskRun(ctx context.Context, run TaskRun) error {
	if run.ID == "" {
		return fmt.Errorf("task run ID is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO task_runs
			(id, started_at, session_id, description, status, summary, duration_ms,
			 iterations, actions, input_tokens, output_tokens, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.SessionID,
		run.Description,
		run.Status,
		run.Summary,
		run.Duration.Milliseconds(),
		run.Iterations,
		run.Actions,
		run.InputTokens,
		run.OutputTokens,
		run.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("insert task run: %w", err)
	}
	return nil
}

// TaskSummary aggregates the usage records of one task.
func (s *Store) TaskSummary(ctx context.Context, taskID string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		 FROM usage_records
		 WHERE task_id = ?`,
		taskID,
	)
	return scanSummary(row)
}

// Summary returns aggregated totals for records within [start, end).
func (s *Store) Summary(ctx context.Context, start, end time.Time) (*Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		 FROM usage_records
		 WHERE timestamp >= ? AND timestamp < ?`,
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
	)
	return scanSummary(row)
}

func scanSummary(row *sql.Row) (*Summary, error) {
	var sum Summary
	if err := row.Scan(&sum.TotalRecords, &sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.TotalCostUSD); err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	return &sum, nil
}

// RecentRuns returns up to limit task runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]TaskRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(session_id, ''), description, status, COALESCE(summary, ''),
		        duration_ms, iterations, actions, input_tokens, output_tokens, cost_usd
		 FROM task_runs
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()

	var runs []TaskRun
	for rows.Next() {
		var (
			run        TaskRun
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &startedAt, &run.SessionID, &run.Description, &run.Status, &run.Summary,
			&durationMS, &run.Iterations, &run.Actions, &run.InputTokens, &run.OutputTokens, &run.CostUSD); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CostFunc prices one backend call.
type CostFunc func(model string, inputTokens, outputTokens int) float64

// ComputeCost calculates the USD cost for a model's token usage. Models not
// in the table are priced at the fallback rate.
func ComputeCost(model string, inputTokens, outputTokens int, pricing map[string]config.PricingEntry) float64 {
	entry, ok := pricing[model]
	if !ok {
		entry = config.PricingEntry{InputPerMillion: FallbackInputPerMillion, OutputPerMillion: FallbackOutputPerMillion}
	}
	cost := float64(inputTokens) / 1_000_000.0 * entry.InputPerMillion
	cost += float64(outputTokens) / 1_000_000.0 * entry.OutputPerMillion
	return cost
}

// Pricer returns a CostFunc bound to a pricing table.
func Pricer(pricing map[string]config.PricingEntry) CostFunc {
	return func(model string, in, out int) float64 {
		return ComputeCost(model, in, out, pricing)
	}
}
