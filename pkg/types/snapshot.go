package types

import (
	"fmt"
	"time"
)

// Element is one interactive element of a page snapshot. Index is the
// position the model refers to with element_index.
type Element struct {
	Tag         string
	Role        string
	Text        string
	AriaLabel   string
	Name        string
	Type        string
	Placeholder string
	Href        string
	Selector    string
	Index       int
	X           int
	Y           int
}

// Label returns the human readable label of the element: its text, then its
// aria-label, then its placeholder.
func (e *Element) Label() string {
	switch {
	case e.Text != "":
		return e.Text
	case e.AriaLabel != "":
		return e.AriaLabel
	default:
		return e.Placeholder
	}
}

// Snapshot is a structured description of the current page state.
type Snapshot struct {
	CapturedAt time.Time
	URL        string
	Title      string
	Text       string
	Elements   []Element
	Width      int
	Height     int
}

// ElementAt resolves an element by its index. Only the snapshot the index
// was issued against is authoritative.
func (s *Snapshot) ElementAt(index int) (*Element, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Elements {
		if s.Elements[i].Index == index {
			return &s.Elements[i], true
		}
	}
	return nil, false
}

// Locator addresses an element for the Actuator. Element is set when the
// target was given as a snapshot index and resolved against the snapshot.
type Locator struct {
	Element  *Element
	Selector string
}

// CSS returns the selector to act on.
func (l Locator) CSS() string {
	if l.Element != nil && l.Element.Selector != "" {
		return l.Element.Selector
	}
	return l.Selector
}

// Describe names the target in result messages.
func (l Locator) Describe() string {
	if l.Element != nil {
		if label := l.Element.Label(); label != "" {
			return fmt.Sprintf("[%d] %q", l.Element.Index, label)
		}
		return fmt.Sprintf("[%d]", l.Element.Index)
	}
	return l.Selector
}

// ActionResult is the outcome of one Actuator call. Expected failures are
// reported with Success=false rather than as errors.
type ActionResult struct {
	// Data carries a payload for tools that produce one (extract_data,
	// take_screenshot).
	Data    string
	Message string
	Success bool
}

// Succeeded creates a successful action result.
func Succeeded(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}

// Failed creates a failed action result.
func Failed(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}
