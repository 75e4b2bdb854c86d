package browser

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// maxCollected bounds the headings, items and links kept per page.
const maxCollected = 100

// PageContent is the readable content of a page with scripts, styles and
// other noise removed.
type PageContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Headings    []string `json:"headings,omitempty"`
	// Items holds list entries and table rows.
	Items     []string `json:"items,omitempty"`
	Links     []Link   `json:"links,omitempty"`
	Text      string   `json:"text"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Link represents a hyperlink with text and URL.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ParseContent extracts readable content from raw HTML. Text is cut at
// maxLength bytes; zero means unbounded.
func ParseContent(rawHTML string, maxLength int) (*PageContent, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	w := &contentWalker{
		content: &PageContent{
			Title:       extractTitle(doc),
			Description: extractMetaDescription(doc),
		},
		text: textBuilder{max: maxLength},
	}
	w.walk(doc)

	w.content.Text = w.text.String()
	w.content.Truncated = w.text.truncated
	return w.content, nil
}

// Render formats the content for extract_data: plain text, a bulleted list
// or JSON.
func (c *PageContent) Render(format string) (string, error) {
	switch format {
	case "", "text":
		return c.Text, nil
	case "list":
		entries := c.Items
		if len(entries) == 0 {
			entries = c.Headings
		}
		if len(entries) == 0 {
			return c.Text, nil
		}
		var b strings.Builder
		for i, e := range entries {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(e)
		}
		return b.String(), nil
	case "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode content: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("unsupported format: %s", format)
}

type contentWalker struct {
	content *PageContent
	text    textBuilder
}

func (w *contentWalker) walk(n *html.Node) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		if text := collapseSpace(n.Data); text != "" {
			w.text.write(text)
		}
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if tag == "head" || isSkippedElement(tag) {
			return
		}
		block := isBlockElement(tag)
		if block || tag == "br" {
			w.text.lineBreak()
		}
		w.collect(n, tag)
		w.walkChildren(n)
		if block {
			w.text.lineBreak()
		}
		return
	}
	w.walkChildren(n)
}

func (w *contentWalker) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// collect records headings, list items, table rows and links.
func (w *contentWalker) collect(n *html.Node, tag string) {
	c := w.content
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if text := nodeText(n); text != "" && len(c.Headings) < maxCollected {
			c.Headings = append(c.Headings, text)
		}
	case "li", "tr":
		if text := nodeText(n); text != "" && len(c.Items) < maxCollected {
			c.Items = append(c.Items, text)
		}
	case "a":
		href := attr(n, "href")
		if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") || len(c.Links) >= maxCollected {
			return
		}
		c.Links = append(c.Links, Link{Text: nodeText(n), Href: href})
	}
}

// nodeText returns the collapsed text of a subtree without noise elements.
func nodeText(n *html.Node) string {
	var parts []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && isSkippedElement(strings.ToLower(n.Data)) {
			return
		}
		if n.Type == html.TextNode {
			if t := collapseSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(parts, " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textBuilder joins text runs with spaces, or newlines across block
// boundaries, and stops at max bytes.
type textBuilder struct {
	b            strings.Builder
	max          int
	truncated    bool
	pendingBreak bool
}

func (t *textBuilder) lineBreak() {
	t.pendingBreak = true
}

func (t *textBuilder) write(s string) {
	if t.truncated {
		return
	}
	if t.b.Len() > 0 {
		if t.pendingBreak {
			t.b.WriteByte('\n')
		} else {
			t.b.WriteByte(' ')
		}
	}
	t.pendingBreak = false

	if t.max > 0 && t.b.Len()+len(s) > t.max {
		remaining := t.max - t.b.Len()
		if remaining > 0 {
			t.b.WriteString(cutUTF8(s, remaining))
		}
		t.b.WriteString("...")
		t.truncated = true
		return
	}
	t.b.WriteString(s)
}

func (t *textBuilder) String() string {
	return t.b.String()
}

// cutUTF8 returns the longest prefix of s of at most n bytes that does not
// split a rune.
func cutUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// isSkippedElement returns true for elements that should be completely removed
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "iframe", "embed", "object", "svg", "template":
		return true
	}
	return false
}

// isBlockElement returns true for block-level elements (for formatting)
func isBlockElement(tagName string) bool {
	switch tagName {
	case "div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre", "dl", "dt", "dd", "figure", "figcaption":
		return true
	}
	return false
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if title != "" {
				return
			}
		}
	}
	traverse(doc)
	return title
}

// extractMetaDescription extracts the meta description from the document
func extractMetaDescription(doc *html.Node) string {
	var description string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" && strings.EqualFold(attr(n, "name"), "description") {
			description = attr(n, "content")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if description != "" {
				return
			}
		}
	}
	traverse(doc)
	return description
}
