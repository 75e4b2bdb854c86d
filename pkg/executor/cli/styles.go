package cli

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#FFB3BA")
	success = lipgloss.Color("#A8E6CF")
	warning = lipgloss.Color("#FFD59E")
	muted   = lipgloss.Color("#6B7280")
	text    = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(muted)

	promptStyle = lipgloss.NewStyle().
			Foreground(success).
			Bold(true)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(muted).
			Italic(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(success)

	toolResultStyle = lipgloss.NewStyle().
			Foreground(text)

	successStyle = lipgloss.NewStyle().
			Foreground(success).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warning)

	errorStyle = lipgloss.NewStyle().
			Foreground(accent)

	// resultBoxStyle frames extracted data in the final report
	resultBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)
