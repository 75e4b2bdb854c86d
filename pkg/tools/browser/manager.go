package browser

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/security/urlguard"
)

var browserLog *logging.Logger

func init() {
	var err error
	browserLog, err = logging.NewLogger("browser")
	if err != nil {
		browserLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// Manager owns the Playwright driver and every session started from it.
type Manager struct {
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	maxSessions int
	mu          sync.Mutex
	initialized bool
}

// NewManager creates a new session manager.
func NewManager() *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: DefaultMaxSessions,
	}
}

// Initialize installs the browser driver if needed and starts Playwright.
// This must be called before creating any sessions.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Driver output would interleave with the terminal UI.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	browserLog.Infof("playwright started")
	return nil
}

// StartSession launches a browser and returns the new session. Navigation
// targets of the session are checked with guard.
func (m *Manager) StartSession(name string, opts Options, guard *urlguard.Validator) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}
	if !m.initialized {
		return nil, errors.New("session manager not initialized")
	}
	if guard == nil {
		return nil, errors.New("a url validator is required")
	}

	opts = opts.withDefaults()
	viewport := &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height}

	var (
		browser playwright.Browser
		bctx    playwright.BrowserContext
		err     error
	)
	if opts.UserDataDir != "" {
		bctx, err = m.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			SlowMo:   playwright.Float(millis(opts.SlowMo)),
			Viewport: viewport,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
	} else {
		browser, err = m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			SlowMo:   playwright.Float(millis(opts.SlowMo)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		bctx, err = browser.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport})
		if err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
	}

	session := newSession(name, browser, bctx, opts, guard)
	if _, err := session.ensurePage(); err != nil {
		session.close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	m.sessions[name] = session
	browserLog.Infof("session %q started (headless=%v)", name, opts.Headless)
	return session, nil
}

// GetSession retrieves an active session by name.
func (m *Manager) GetSession(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[name]
	if !exists {
		return nil, fmt.Errorf("session %q not found", name)
	}
	return session, nil
}

// CloseSession closes and removes a browser session.
func (m *Manager) CloseSession(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[name]
	if !exists {
		return fmt.Errorf("session %q not found", name)
	}
	delete(m.sessions, name)
	return session.close()
}

// Sessions returns information about all active sessions, sorted by name.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// SetMaxSessions sets the maximum number of concurrent sessions.
func (m *Manager) SetMaxSessions(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSessions = max
}

// Shutdown closes all sessions and stops Playwright.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, s := range m.sessions {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %q: %w", name, err))
		}
		delete(m.sessions, name)
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
	}
	browserLog.Infof("browser shut down")
	return errors.Join(errs...)
}
