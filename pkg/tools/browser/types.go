package browser

import (
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
)

// Default values for sessions and page operations.
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultActionTimeout     = 10 * time.Second
	DefaultWaitCap           = 500 * time.Millisecond
	DefaultViewportWidth     = 1280
	DefaultViewportHeight    = 800
	DefaultMaxSessions       = 5
	DefaultMaxElements       = 200
	DefaultMaxTextLength     = 8000
	DefaultExtractLength     = 10000
)

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Options configures a browser session.
type Options struct {
	// UserDataDir, when set, launches a persistent context so cookies and
	// logins survive restarts.
	UserDataDir string

	Viewport Viewport

	NavigationTimeout time.Duration
	ActionTimeout     time.Duration

	// WaitCap bounds waits that have no selector to wait for.
	WaitCap time.Duration

	// SlowMo delays every Playwright operation.
	SlowMo time.Duration

	// MaxElements bounds the elements of one snapshot.
	MaxElements int

	// MaxTextLength bounds the page text of one snapshot.
	MaxTextLength int

	Headless bool
}

// DefaultOptions returns headed session options with default timeouts.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// OptionsFromConfig maps the browser configuration section onto Options.
func OptionsFromConfig(cfg config.BrowserConfig) Options {
	return Options{
		UserDataDir:       cfg.UserDataDir,
		Viewport:          Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
		NavigationTimeout: cfg.NavigationTimeout,
		ActionTimeout:     cfg.ActionTimeout,
		WaitCap:           cfg.WaitCap,
		SlowMo:            time.Duration(cfg.SlowMo * float64(time.Millisecond)),
		Headless:          cfg.Headless,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	if o.WaitCap <= 0 {
		o.WaitCap = DefaultWaitCap
	}
	if o.MaxElements <= 0 {
		o.MaxElements = DefaultMaxElements
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = DefaultMaxTextLength
	}
	return o
}

// millis converts a duration to the float milliseconds Playwright expects.
func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// SessionInfo contains metadata about a browser session.
type SessionInfo struct {
	CreatedAt  time.Time
	LastUsedAt time.Time
	Name       string
	CurrentURL string
	Headless   bool
}
