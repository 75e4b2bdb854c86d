package prompts

import (
	"fmt"
	"strings"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const (
	maxLabelLength    = 50
	maxSelectorLength = 60
	maxURLLength      = 120
)

// Turn is everything rendered into a per-iteration user prompt.
type Turn struct {
	Snapshot      *types.Snapshot
	Task          string
	History       []string
	Iteration     int
	MaxIterations int
	MaxElements   int
	MaxTextLength int
	WithVisual    bool
}

// ElementType classifies an element by tag and role only.
func ElementType(el types.Element) string {
	tag := strings.ToLower(el.Tag)
	role := strings.ToLower(el.Role)
	switch {
	case tag == "input" || tag == "textarea":
		if el.Type != "" {
			return "INPUT:" + strings.ToLower(el.Type)
		}
		return "INPUT"
	case tag == "a":
		return "LINK"
	case tag == "button" || role == "button":
		return "BTN"
	case tag == "select":
		return "SELECT"
	case tag == "":
		return "ELEM"
	default:
		return strings.ToUpper(tag)
	}
}

// FormatElement renders one element line.
func FormatElement(el types.Element) string {
	line := fmt.Sprintf("[%d] %s %q", el.Index, ElementType(el), clip(el.Label(), maxLabelLength))
	if el.Selector != "" {
		line += " -> " + clip(el.Selector, maxSelectorLength)
	}
	return line
}

// BuildTurn renders the user prompt for one iteration.
func BuildTurn(t Turn) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TASK: %s\n", t.Task)
	fmt.Fprintf(&b, "ITERATION: %d/%d\n", t.Iteration, t.MaxIterations)

	snap := t.Snapshot
	if snap == nil {
		b.WriteString("\nPAGE: unavailable\n")
	} else {
		fmt.Fprintf(&b, "URL: %s\n", clip(snap.URL, maxURLLength))
		if snap.Title != "" {
			fmt.Fprintf(&b, "TITLE: %s\n", snap.Title)
		}

		elements := snap.Elements
		if t.MaxElements > 0 && len(elements) > t.MaxElements {
			elements = elements[:t.MaxElements]
		}
		fmt.Fprintf(&b, "\nELEMENTS (%d of %d):\n", len(elements), len(snap.Elements))
		if len(elements) == 0 {
			b.WriteString("none\n")
		}
		for _, el := range elements {
			b.WriteString(FormatElement(el))
			b.WriteByte('\n')
		}

		text := snap.Text
		if t.MaxTextLength > 0 {
			text = clip(text, t.MaxTextLength)
		}
		if text != "" {
			fmt.Fprintf(&b, "\nPAGE TEXT:\n%s\n", text)
		}
	}

	b.WriteString("\nACTIONS TAKEN:\n")
	if len(t.History) == 0 {
		b.WriteString("none yet, this is the first step\n")
	}
	for i, h := range t.History {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}

	if t.WithVisual {
		b.WriteString("\nA screenshot of the current viewport is attached.\n")
	}

	b.WriteString("\nChoose the next tool call.")
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
