package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/Lappy000/Browser-Agent-AI/pkg/security/urlguard"
)

// Session is one browser context driven by the agent. All methods are safe
// for concurrent use, although the agent loop calls them sequentially.
type Session struct {
	createdAt  time.Time
	lastUsedAt time.Time
	browser    playwright.Browser // nil for persistent contexts
	context    playwright.BrowserContext
	page       playwright.Page
	guard      *urlguard.Validator
	name       string
	opts       Options
	mu         sync.Mutex
}

func newSession(name string, browser playwright.Browser, bctx playwright.BrowserContext, opts Options, guard *urlguard.Validator) *Session {
	now := time.Now()
	s := &Session{
		name:       name,
		browser:    browser,
		context:    bctx,
		opts:       opts,
		guard:      guard,
		createdAt:  now,
		lastUsedAt: now,
	}
	// Links that open a new tab move the agent along with them.
	bctx.OnPage(func(p playwright.Page) {
		s.mu.Lock()
		s.page = p
		s.mu.Unlock()
		browserLog.Debugf("session %q switched to new tab", name)
	})
	return s
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Info returns metadata about the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{
		Name:       s.name,
		Headless:   s.opts.Headless,
		CreatedAt:  s.createdAt,
		LastUsedAt: s.lastUsedAt,
	}
	if s.page != nil && !s.page.IsClosed() {
		info.CurrentURL = s.page.URL()
	}
	return info
}

// EnsurePage makes sure an open page is available, replacing a closed one
// with another open tab or a new page.
func (s *Session) EnsurePage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.ensurePage()
	return err
}

func (s *Session) ensurePage() (playwright.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsedAt = time.Now()

	if s.page != nil && !s.page.IsClosed() {
		return s.page, nil
	}

	pages := s.context.Pages()
	for i := len(pages) - 1; i >= 0; i-- {
		if !pages[i].IsClosed() {
			s.page = pages[i]
			s.configure(s.page)
			browserLog.Infof("session %q recovered open tab %s", s.name, s.page.URL())
			return s.page, nil
		}
	}

	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page
	s.configure(page)
	browserLog.Infof("session %q opened a new page", s.name)
	return page, nil
}

func (s *Session) configure(p playwright.Page) {
	p.SetDefaultTimeout(millis(s.opts.ActionTimeout))
	p.SetDefaultNavigationTimeout(millis(s.opts.NavigationTimeout))
}

// activePage returns the page to act on, checking ctx first.
func (s *Session) activePage(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ensurePage()
}

// settle waits briefly for the page to finish loading after an action.
// Long-polling pages never reach network idle, so the wait is bounded and
// a timeout is ignored.
func (s *Session) settle(p playwright.Page, state *playwright.LoadState, timeout time.Duration) {
	err := p.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   state,
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil && !errors.Is(err, playwright.ErrTimeout) {
		browserLog.Debugf("waiting for load state: %v", err)
	}
}

func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.page = nil
	return errors.Join(errs...)
}
