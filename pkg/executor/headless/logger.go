package headless

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only errors, warnings and the final summary
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows iterations and tool calls (default)
	LogLevelNormal
	// LogLevelVerbose adds tool results and model text
	LogLevelVerbose
	// LogLevelDebug shows every event
	LogLevelDebug
)

var (
	ruleStyle    = lipgloss.NewStyle().Bold(true)
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7DD3FC"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB3BA"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8E6CF")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD59E"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	summaryWidth = 70
)

// Logger writes the progress of a headless run.
type Logger struct {
	level  LogLevel
	writer io.Writer
}

// NewLogger creates a new logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level:  level,
		writer: os.Stdout,
	}
}

func (l *Logger) line(style lipgloss.Style, format string, args ...interface{}) {
	fmt.Fprintln(l.writer, style.Render(fmt.Sprintf(format, args...)))
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		rule := strings.Repeat("=", summaryWidth)
		fmt.Fprintln(l.writer)
		l.line(ruleStyle, "%s", rule)
		l.line(ruleStyle, "  %s", message)
		l.line(ruleStyle, "%s", rule)
	}
}

// Iteration marks the start of an agent iteration.
func (l *Logger) Iteration(n, limit int) {
	if l.level < LogLevelNormal {
		return
	}
	if limit > 0 {
		l.line(stepStyle, "\n[%d/%d]", n, limit)
		return
	}
	l.line(stepStyle, "\n[%d]", n)
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.line(okStyle, "✓ "+format, args...)
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.line(infoStyle, format, args...)
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.line(warnStyle, "⚠ Warning: "+format, args...)
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.line(failStyle, "✗ Error: "+format, args...)
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		l.line(dimStyle, "→ "+format, args...)
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.line(dimStyle, "[DEBUG] "+format, args...)
	}
}

// ToolCall logs a tool call with detail depending on verbosity
func (l *Logger) ToolCall(toolName string, input map[string]interface{}, count int) {
	switch l.level {
	case LogLevelQuiet:
	case LogLevelNormal:
		l.line(dimStyle, "  • %s (#%d)", toolName, count)
	case LogLevelVerbose, LogLevelDebug:
		l.line(stepStyle, "  🔧 %s %v (call #%d)", toolName, input, count)
	}
}

// ToolResult logs the outcome of a tool call. Failures show at normal
// verbosity, successes only when verbose.
func (l *Logger) ToolResult(toolName string, success bool, message string) {
	if !success {
		if l.level >= LogLevelNormal {
			l.line(warnStyle, "    ✗ %s: %s", toolName, oneLine(message, 200))
		}
		return
	}
	if l.level >= LogLevelVerbose {
		l.line(dimStyle, "    ✓ %s", oneLine(message, 200))
	}
}

// Summary prints a final execution summary
func (l *Logger) Summary(summary *ExecutionSummary) {
	rule := strings.Repeat("=", summaryWidth)
	fmt.Fprintln(l.writer)
	l.line(ruleStyle, "%s", rule)
	l.line(ruleStyle, "  EXECUTION SUMMARY")
	l.line(ruleStyle, "%s", rule)

	fmt.Fprint(l.writer, "  Status: ")
	switch summary.Status {
	case statusSuccess:
		l.line(okStyle, "✓ SUCCESS")
	case statusPartialSuccess:
		l.line(warnStyle, "⚠ PARTIAL SUCCESS")
	case statusCancelled:
		l.line(warnStyle, "■ CANCELLED")
	case statusFailed:
		l.line(failStyle, "✗ FAILED")
	default:
		fmt.Fprintln(l.writer, summary.Status)
	}

	fmt.Fprintf(l.writer, "  Task: %s\n", summary.Task)
	fmt.Fprintf(l.writer, "  Duration: %s\n", summary.Duration.Round(time.Second))

	m := summary.Metrics
	fmt.Fprintf(l.writer, "\n  📊 Metrics:\n")
	fmt.Fprintf(l.writer, "    Iterations: %d\n", m.Iterations)
	fmt.Fprintf(l.writer, "    Actions: %d (%d tool calls)\n", m.Actions, m.ToolCalls)
	if m.TokensUsed > 0 {
		fmt.Fprintf(l.writer, "    Tokens used: %s\n", formatNumber(m.TokensUsed))
	}
	fmt.Fprintf(l.writer, "    Cost: $%.4f\n", m.CostUSD)

	if summary.Summary != "" {
		fmt.Fprintf(l.writer, "\n  %s\n", summary.Summary)
	}
	if summary.Result != "" {
		fmt.Fprintf(l.writer, "\n  Result:\n    %s\n", strings.ReplaceAll(summary.Result, "\n", "\n    "))
	}

	if len(summary.Violations) > 0 && l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "\n  🚫 Constraint violations: %d\n", len(summary.Violations))
		if l.level >= LogLevelVerbose {
			for _, v := range summary.Violations {
				l.line(dimStyle, "    • %s", v.Message)
			}
		}
	}

	if summary.Error != "" {
		fmt.Fprintln(l.writer)
		l.line(failStyle, "  Error Details:")
		l.line(failStyle, "    %s", summary.Error)
	}

	l.line(ruleStyle, "%s", rule)
	fmt.Fprintln(l.writer)
}

// parseLogLevel converts a string log level to LogLevel type
func parseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// formatNumber formats large numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
