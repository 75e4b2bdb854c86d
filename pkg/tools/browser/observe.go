package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const screenshotTimeout = 15 * time.Second

// snapshotScript collects the visible interactive elements of the page as
// a JSON string. Elements without a unique stable selector are stamped with
// data-agent-index; stamps from the previous snapshot are removed first.
const snapshotScript = `() => {
	if (!document.body) return "[]";
	document.querySelectorAll("[data-agent-index]").forEach(e => e.removeAttribute("data-agent-index"));

	const candidates = [
		"a[href]", "button", "input:not([type=hidden])", "select", "textarea",
		"[onclick]", "[role=button]", "[role=link]", "[role=menuitem]", "[role=tab]",
		"[role=checkbox]", "[role=radio]", "[role=combobox]", "[role=searchbox]",
		"[role=option]", "[role=switch]", "[contenteditable=true]", "details > summary"
	];
	const unique = (sel) => { try { return document.querySelectorAll(sel).length === 1; } catch (e) { return false; } };
	const stableId = (id) => id && !/[:;^]|^[a-z0-9]{1,3}$|^[0-9]+$/.test(id);

	function selectorFor(el, index) {
		const tag = el.tagName.toLowerCase();
		const aria = el.getAttribute("aria-label");
		if (aria && aria.length < 100) {
			const s = tag + '[aria-label="' + CSS.escape(aria) + '"]';
			if (unique(s)) return s;
		}
		for (const attr of ["data-testid", "data-qa", "data-cy", "data-test"]) {
			const v = el.getAttribute(attr);
			if (v) {
				const s = "[" + attr + '="' + CSS.escape(v) + '"]';
				if (unique(s)) return s;
			}
		}
		if (stableId(el.id)) {
			const s = "#" + CSS.escape(el.id);
			if (unique(s)) return s;
		}
		const name = el.getAttribute("name");
		if (name) {
			const s = tag + '[name="' + CSS.escape(name) + '"]';
			if (unique(s)) return s;
		}
		el.setAttribute("data-agent-index", String(index));
		return '[data-agent-index="' + index + '"]';
	}

	function visible(el) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const st = window.getComputedStyle(el);
		return st.display !== "none" && st.visibility !== "hidden" && st.opacity !== "0";
	}

	const out = [];
	const seen = new Set();
	for (const el of document.querySelectorAll(candidates.join(","))) {
		if (seen.has(el) || !visible(el)) continue;
		seen.add(el);
		const r = el.getBoundingClientRect();
		if (r.bottom < -200 || r.top > window.innerHeight + 500) continue;
		if (r.right < -200 || r.left > window.innerWidth + 200) continue;

		const text = (el.innerText || el.textContent || "").trim().replace(/\s+/g, " ").substring(0, 150);
		const index = out.length;
		out.push({
			index: index,
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute("role") || "",
			text: text,
			aria_label: (el.getAttribute("aria-label") || el.title || "").substring(0, 100),
			name: el.getAttribute("name") || "",
			type: el.getAttribute("type") || "",
			placeholder: el.getAttribute("placeholder") || "",
			href: el.getAttribute("href") || "",
			selector: selectorFor(el, index),
			x: Math.round(r.x + r.width / 2),
			y: Math.round(r.y + r.height / 2)
		});
	}
	return JSON.stringify(out);
}`

// rawElement is the JSON shape produced by snapshotScript.
type rawElement struct {
	Tag         string `json:"tag"`
	Role        string `json:"role"`
	Text        string `json:"text"`
	AriaLabel   string `json:"aria_label"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder"`
	Href        string `json:"href"`
	Selector    string `json:"selector"`
	Index       int    `json:"index"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
}

// decodeElements parses the snapshot script output, keeping at most limit
// elements.
func decodeElements(raw string, limit int) ([]types.Element, error) {
	var items []rawElement
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode page elements: %w", err)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	elements := make([]types.Element, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Selector) == "" {
			continue
		}
		elements = append(elements, types.Element{
			Index:       it.Index,
			Tag:         it.Tag,
			Role:        it.Role,
			Text:        it.Text,
			AriaLabel:   it.AriaLabel,
			Name:        it.Name,
			Type:        it.Type,
			Placeholder: it.Placeholder,
			Href:        it.Href,
			Selector:    it.Selector,
			X:           it.X,
			Y:           it.Y,
		})
	}
	return elements, nil
}

// Observe captures a structured snapshot of the current page.
func (s *Session) Observe(ctx context.Context) (*types.Snapshot, error) {
	page, err := s.activePage(ctx)
	if err != nil {
		return nil, err
	}

	snap := &types.Snapshot{
		CapturedAt: time.Now(),
		URL:        page.URL(),
		Width:      s.opts.Viewport.Width,
		Height:     s.opts.Viewport.Height,
	}
	if size := page.ViewportSize(); size != nil {
		snap.Width, snap.Height = size.Width, size.Height
	}

	// The page may be mid-navigation; an unreadable title or body yields a
	// sparse snapshot instead of an error.
	if title, err := page.Title(); err == nil {
		snap.Title = title
	}

	result, err := page.Evaluate(snapshotScript)
	if err != nil {
		browserLog.Warnf("element snapshot failed on %s: %v", snap.URL, err)
	} else if raw, ok := result.(string); ok {
		if snap.Elements, err = decodeElements(raw, s.opts.MaxElements); err != nil {
			browserLog.Warnf("%v", err)
		}
	}

	if raw, err := page.Content(); err == nil {
		if content, err := ParseContent(raw, s.opts.MaxTextLength); err == nil {
			snap.Text = content.Text
			if snap.Title == "" {
				snap.Title = content.Title
			}
		}
	}

	browserLog.Debugf("observed %s: %d elements, %d chars of text", snap.URL, len(snap.Elements), len(snap.Text))
	return snap, nil
}

// Screenshot captures the page as PNG. A full-page capture that fails falls
// back to the viewport.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	page, err := s.activePage(ctx)
	if err != nil {
		return nil, err
	}

	capture := func(full bool) ([]byte, error) {
		return page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(full),
			Type:     playwright.ScreenshotTypePng,
			Timeout:  playwright.Float(millis(screenshotTimeout)),
		})
	}

	data, err := capture(fullPage)
	if err != nil && fullPage {
		browserLog.Warnf("full page screenshot failed, falling back to viewport: %v", err)
		data, err = capture(false)
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}
