package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// WriteAll writes execution.json, summary.md and metrics.json.
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.writeJSON("execution.json", summary); err != nil {
		return err
	}

	if err := w.WriteSummaryMarkdown(summary); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}

	return w.writeJSON("metrics.json", summary.Metrics)
}

func (w *ArtifactWriter) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(w.outputDir, name), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")
	return os.WriteFile(path, []byte(renderMarkdown(summary)), 0600)
}

func renderMarkdown(summary *ExecutionSummary) string {
	var md strings.Builder

	md.WriteString("# Browser Task Report\n\n")
	fmt.Fprintf(&md, "**Task:** %s\n\n", summary.Task)
	fmt.Fprintf(&md, "**Status:** %s\n\n", summary.Status)
	fmt.Fprintf(&md, "**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&md, "**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339))
	fmt.Fprintf(&md, "**Duration:** %s\n\n", summary.Duration.Round(time.Millisecond))

	md.WriteString("## Outcome\n\n")
	if summary.Error != "" {
		fmt.Fprintf(&md, "❌ **Error:** %s\n\n", summary.Error)
	} else {
		md.WriteString("✅ **Completed**\n\n")
	}
	if summary.Summary != "" {
		md.WriteString(summary.Summary + "\n\n")
	}
	if summary.Result != "" {
		md.WriteString("### Extracted data\n\n```\n")
		md.WriteString(summary.Result)
		md.WriteString("\n```\n\n")
	}

	if len(summary.Actions) > 0 {
		md.WriteString("## Actions\n\n")
		for i, a := range summary.Actions {
			mark := "✅"
			detail := a.Output
			if !a.Success {
				mark = "❌"
				detail = a.Error
			}
			fmt.Fprintf(&md, "%d. %s `%s` %s\n", i+1, mark, a.Tool, oneLine(detail, 160))
		}
		md.WriteString("\n")
	}

	if len(summary.Confirmations) > 0 {
		md.WriteString("## Confirmations\n\n")
		for _, c := range summary.Confirmations {
			verdict := "refused"
			if c.Approved {
				verdict = "approved"
			}
			fmt.Fprintf(&md, "- %s: %s (%s)\n", verdict, c.Action, c.Reason)
		}
		md.WriteString("\n")
	}

	if len(summary.Violations) > 0 {
		md.WriteString("## Constraint Violations\n\n")
		for _, v := range summary.Violations {
			fmt.Fprintf(&md, "- **%s** %s\n", v.Type, v.Message)
		}
		md.WriteString("\n")
	}

	md.WriteString("## Metrics\n\n")
	fmt.Fprintf(&md, "- **Iterations:** %d\n", summary.Metrics.Iterations)
	fmt.Fprintf(&md, "- **Actions:** %d\n", summary.Metrics.Actions)
	fmt.Fprintf(&md, "- **Tool Calls:** %d\n", summary.Metrics.ToolCalls)
	fmt.Fprintf(&md, "- **Input Tokens:** %d\n", summary.Metrics.InputTokens)
	fmt.Fprintf(&md, "- **Output Tokens:** %d\n", summary.Metrics.OutputTokens)
	fmt.Fprintf(&md, "- **Cost:** $%.4f\n", summary.Metrics.CostUSD)

	return md.String()
}

// oneLine flattens s and cuts it to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

// ExecutionSummary contains a complete summary of headless execution
type ExecutionSummary struct {
	Task          string                 `json:"task"`
	Status        string                 `json:"status"`
	Error         string                 `json:"error,omitempty"`
	Summary       string                 `json:"summary,omitempty"`
	Result        string                 `json:"result,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	StartTime     time.Time              `json:"start_time"`
	EndTime       time.Time              `json:"end_time"`
	Duration      time.Duration          `json:"duration"`
	Actions       []ActionRecord         `json:"actions"`
	Confirmations []Confirmation         `json:"confirmations,omitempty"`
	Violations    []ConstraintViolation  `json:"violations,omitempty"`
	Metrics       ExecutionMetrics       `json:"metrics"`
}

// ActionRecord is one tool call as reported by the agent.
type ActionRecord struct {
	Tool    string                 `json:"tool"`
	Input   map[string]interface{} `json:"input,omitempty"`
	Output  string                 `json:"output,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Success bool                   `json:"success"`
}

// Confirmation is a risk confirmation answered by the executor.
type Confirmation struct {
	Action   string `json:"action"`
	Reason   string `json:"reason"`
	Approved bool   `json:"approved"`
}

// ExecutionMetrics contains execution metrics
type ExecutionMetrics struct {
	Iterations   int     `json:"iterations"`
	Actions      int     `json:"actions"`
	ToolCalls    int     `json:"tool_calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TokensUsed   int     `json:"tokens_used"`
	CostUSD      float64 `json:"cost_usd"`
}
