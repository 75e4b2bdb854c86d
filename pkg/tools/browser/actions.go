package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const (
	aboutBlank       = "about:blank"
	networkIdleWait  = 3 * time.Second
	afterActionWait  = 2 * time.Second
	typeDelayPerChar = 30 * time.Millisecond
)

// Navigate opens url in the current page. Scheme-less URLs get https://.
func (s *Session) Navigate(ctx context.Context, url string) types.ActionResult {
	target, err := s.guard.Sanitize(url)
	if err != nil {
		browserLog.Warnf("navigation blocked: %v", err)
		return types.Failed(fmt.Sprintf("Navigation blocked: %v", err))
	}
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}

	if _, err := page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(millis(s.opts.NavigationTimeout)),
	}); err != nil {
		return types.Failed(fmt.Sprintf("Navigation to %s failed: %v", target, err))
	}
	s.settle(page, playwright.LoadStateNetworkidle, networkIdleWait)

	return types.Succeeded("Navigated to " + page.URL())
}

// Click clicks the located element. When the element came from a snapshot
// and the locator click fails, the element's center is clicked instead.
func (s *Session) Click(ctx context.Context, loc types.Locator) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	selector := loc.CSS()
	if selector == "" {
		return types.Failed("Element has no selector")
	}

	before := page.URL()
	err = page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(millis(s.opts.ActionTimeout)),
	})
	if err != nil && loc.Element != nil && (loc.Element.X > 0 || loc.Element.Y > 0) {
		browserLog.Debugf("locator click on %s failed, clicking at (%d, %d): %v", selector, loc.Element.X, loc.Element.Y, err)
		err = page.Mouse().Click(float64(loc.Element.X), float64(loc.Element.Y))
	}
	if err != nil {
		return types.Failed(fmt.Sprintf("Click on %s failed: %v", loc.Describe(), err))
	}
	s.settle(page, playwright.LoadStateDomcontentloaded, afterActionWait)

	return types.Succeeded(withNavigation("Clicked "+loc.Describe(), before, s.currentURL()))
}

// ClickAt clicks at viewport coordinates.
func (s *Session) ClickAt(ctx context.Context, x, y int) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	before := page.URL()
	if err := page.Mouse().Click(float64(x), float64(y)); err != nil {
		return types.Failed(fmt.Sprintf("Click at (%d, %d) failed: %v", x, y, err))
	}
	s.settle(page, playwright.LoadStateDomcontentloaded, afterActionWait)

	return types.Succeeded(withNavigation(fmt.Sprintf("Clicked at (%d, %d)", x, y), before, s.currentURL()))
}

// TypeText types into the located field. The typed text is never echoed in
// the result.
func (s *Session) TypeText(ctx context.Context, loc types.Locator, text string, clear bool) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	field := page.Locator(loc.CSS()).First()
	timeout := playwright.Float(millis(s.opts.ActionTimeout))

	if clear {
		err = field.Fill(text, playwright.LocatorFillOptions{Timeout: timeout})
	} else {
		err = field.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
			Delay:   playwright.Float(millis(typeDelayPerChar)),
			Timeout: timeout,
		})
	}
	if err != nil {
		return types.Failed(fmt.Sprintf("Typing into %s failed: %v", loc.Describe(), err))
	}
	return types.Succeeded(fmt.Sprintf("Typed %d characters into %s", len([]rune(text)), loc.Describe()))
}

// SelectOption selects an option of a select element by value, falling
// back to its visible label.
func (s *Session) SelectOption(ctx context.Context, loc types.Locator, value string) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	field := page.Locator(loc.CSS()).First()
	opts := playwright.LocatorSelectOptionOptions{Timeout: playwright.Float(millis(s.opts.ActionTimeout))}

	selected, err := field.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}, opts)
	if err != nil || len(selected) == 0 {
		selected, err = field.SelectOption(playwright.SelectOptionValues{Labels: &[]string{value}}, opts)
	}
	if err != nil {
		return types.Failed(fmt.Sprintf("Selecting '%s' in %s failed: %v", value, loc.Describe(), err))
	}
	if len(selected) == 0 {
		return types.Failed(fmt.Sprintf("No option '%s' in %s", value, loc.Describe()))
	}
	return types.Succeeded(fmt.Sprintf("Selected '%s' in %s", value, loc.Describe()))
}

// Scroll scrolls the window. A negative pixel count scrolls one viewport.
func (s *Session) Scroll(ctx context.Context, direction string, pixels int) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}

	height := s.opts.Viewport.Height
	if size := page.ViewportSize(); size != nil && size.Height > 0 {
		height = size.Height
	}
	dx, dy, err := scrollDelta(direction, pixels, height)
	if err != nil {
		return types.Failed(err.Error())
	}

	if _, err := page.Evaluate("([dx, dy]) => window.scrollBy(dx, dy)", []int{dx, dy}); err != nil {
		return types.Failed(fmt.Sprintf("Scroll failed: %v", err))
	}
	return types.Succeeded(fmt.Sprintf("Scrolled %s by %d px", direction, abs(dx+dy)))
}

// scrollDelta converts a direction and distance into window.scrollBy
// arguments.
func scrollDelta(direction string, pixels, viewportHeight int) (dx, dy int, err error) {
	if pixels < 0 {
		pixels = viewportHeight
	}
	switch direction {
	case "down":
		return 0, pixels, nil
	case "up":
		return 0, -pixels, nil
	case "right":
		return pixels, 0, nil
	case "left":
		return -pixels, 0, nil
	}
	return 0, 0, fmt.Errorf("unknown scroll direction %q", direction)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Wait waits for a selector to become visible, or pauses when no selector
// is given. Pauses are capped by Options.WaitCap.
func (s *Session) Wait(ctx context.Context, selector string, timeout time.Duration) types.ActionResult {
	if selector == "" {
		d := pauseDuration(timeout, s.opts.WaitCap)
		select {
		case <-ctx.Done():
			return types.Failed(fmt.Sprintf("Wait interrupted: %v", ctx.Err()))
		case <-time.After(d):
		}
		return types.Succeeded(fmt.Sprintf("Waited %s", d))
	}

	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	if timeout <= 0 {
		timeout = s.opts.ActionTimeout
	}
	if _, err := page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(timeout)),
	}); err != nil {
		return types.Failed(fmt.Sprintf("Element %s did not appear within %s", selector, timeout))
	}
	return types.Succeeded(fmt.Sprintf("Element %s is visible", selector))
}

// pauseDuration bounds a selector-less wait. A zero request waits the cap.
func pauseDuration(requested, limit time.Duration) time.Duration {
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

// ExtractData reads the page content in the requested format. The full
// payload is returned in Data.
func (s *Session) ExtractData(ctx context.Context, query, format string) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	raw, err := page.Content()
	if err != nil {
		return types.Failed(fmt.Sprintf("Reading page content failed: %v", err))
	}
	content, err := ParseContent(raw, DefaultExtractLength)
	if err != nil {
		return types.Failed(err.Error())
	}
	data, err := content.Render(format)
	if err != nil {
		return types.Failed(err.Error())
	}
	if data == "" {
		return types.Failed("The page has no readable content")
	}

	res := types.Succeeded(fmt.Sprintf("Extracted %d characters for %q", len([]rune(data)), query))
	res.Data = data
	return res
}

// GoBack navigates back in the page history.
func (s *Session) GoBack(ctx context.Context) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	resp, err := page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(millis(s.opts.NavigationTimeout)),
	})
	if err != nil {
		return types.Failed(fmt.Sprintf("Going back failed: %v", err))
	}
	if resp == nil {
		return types.Failed("There is no previous page in the history")
	}
	return types.Succeeded("Went back to " + page.URL())
}

// Refresh reloads the current page.
func (s *Session) Refresh(ctx context.Context) types.ActionResult {
	page, err := s.activePage(ctx)
	if err != nil {
		return types.Failed(fmt.Sprintf("Browser unavailable: %v", err))
	}
	if _, err := page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(millis(s.opts.NavigationTimeout)),
	}); err != nil {
		return types.Failed(fmt.Sprintf("Reload failed: %v", err))
	}
	return types.Succeeded("Reloaded " + page.URL())
}

// NewTab opens a tab, optionally at url, and makes it the current page.
func (s *Session) NewTab(ctx context.Context, url string) types.ActionResult {
	if err := ctx.Err(); err != nil {
		return types.Failed(err.Error())
	}
	if url == "" {
		url = aboutBlank
	}
	target, err := s.guard.Sanitize(url)
	if err != nil {
		browserLog.Warnf("new tab blocked: %v", err)
		return types.Failed(fmt.Sprintf("Navigation blocked: %v", err))
	}

	page, err := s.context.NewPage()
	if err != nil {
		return types.Failed(fmt.Sprintf("Opening a tab failed: %v", err))
	}
	s.configure(page)
	s.mu.Lock()
	s.page = page
	s.lastUsedAt = time.Now()
	s.mu.Unlock()

	if target != aboutBlank {
		if _, err := page.Goto(target, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(millis(s.opts.NavigationTimeout)),
		}); err != nil {
			return types.Failed(fmt.Sprintf("New tab opened but navigation to %s failed: %v", target, err))
		}
	}
	return types.Succeeded("Opened new tab at " + page.URL())
}

func (s *Session) currentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil || s.page.IsClosed() {
		return ""
	}
	return s.page.URL()
}

// withNavigation appends the new location when an action changed it.
func withNavigation(msg, before, after string) string {
	if after != "" && after != before {
		return msg + ", page is now " + after
	}
	return msg
}
