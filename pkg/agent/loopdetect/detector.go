// Package loopdetect recognizes a model that keeps repeating the same
// browser action, or keeps alternating between two actions, without making
// progress.
package loopdetect

import (
	"fmt"
	"strings"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
)

const (
	// DefaultRepetitions is how many identical fingerprints in a row trip
	// the repetition rule.
	DefaultRepetitions = 3
	// DefaultWindow is the number of fingerprints kept.
	DefaultWindow = 6

	alternationSpan = 4
	queryPrefixLen  = 30
)

// Fingerprint is a coarse identity of an action. Two invocations with the
// same fingerprint are treated as the same action.
type Fingerprint string

// Of computes the fingerprint of an invocation.
func Of(inv tools.Invocation) Fingerprint {
	name := inv.Name()
	switch in := inv.Input.(type) {
	case tools.NavigateInput:
		return Fingerprint(name + ":" + in.URL)
	case tools.NewTabInput:
		return Fingerprint(name + ":" + in.URL)
	case tools.ClickInput:
		return Fingerprint(name + ":" + targetKey(in.Target))
	case tools.TypeTextInput:
		return Fingerprint(name + ":" + targetKey(in.Target))
	case tools.SelectOptionInput:
		return Fingerprint(name + ":" + targetKey(in.Target))
	case tools.ClickAtInput:
		if in.ElementIndex != nil {
			return Fingerprint(fmt.Sprintf("%s:idx:%d", name, *in.ElementIndex))
		}
		if in.X != nil && in.Y != nil {
			return Fingerprint(fmt.Sprintf("%s:%d,%d", name, *in.X, *in.Y))
		}
	case tools.ExtractDataInput:
		q := []rune(in.Query)
		if len(q) > queryPrefixLen {
			q = q[:queryPrefixLen]
		}
		return Fingerprint(name + ":" + string(q))
	case tools.ScrollInput:
		dir := in.Direction
		if dir == "" {
			dir = "down"
		}
		return Fingerprint(name + ":" + dir)
	}
	return Fingerprint(name)
}

func targetKey(t tools.Target) string {
	if t.Selector != "" {
		return t.Selector
	}
	return fmt.Sprintf("idx:%d", t.Index())
}

// Verdict describes a detected loop.
type Verdict struct {
	Fingerprint Fingerprint
	Diagnostic  string
	Alternating bool
}

// Detector keeps a bounded buffer of recent fingerprints. It is not safe for
// concurrent use; the run loop owns it.
type Detector struct {
	recent      []Fingerprint
	repetitions int
	window      int
}

// Option configures a Detector.
type Option func(*Detector)

// WithRepetitions sets how many identical fingerprints in a row trip the
// detector. Values below 2 are ignored.
func WithRepetitions(n int) Option {
	return func(d *Detector) {
		if n >= 2 {
			d.repetitions = n
		}
	}
}

// WithWindow sets the buffer size. It never drops below what the rules need.
func WithWindow(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.window = n
		}
	}
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		repetitions: DefaultRepetitions,
		window:      DefaultWindow,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.window < d.repetitions {
		d.window = d.repetitions
	}
	if d.window < alternationSpan {
		d.window = alternationSpan
	}
	d.recent = make([]Fingerprint, 0, d.window)
	return d
}

// Repetitions returns the repetition threshold.
func (d *Detector) Repetitions() int {
	return d.repetitions
}

// Observe appends a fingerprint and checks both rules. When a loop is found
// the buffer is cleared so the model gets a fresh chance.
func (d *Detector) Observe(fp Fingerprint) (Verdict, bool) {
	if len(d.recent) == d.window {
		copy(d.recent, d.recent[1:])
		d.recent = d.recent[:d.window-1]
	}
	d.recent = append(d.recent, fp)

	if v, ok := d.check(); ok {
		d.Reset()
		return v, true
	}
	return Verdict{}, false
}

func (d *Detector) check() (Verdict, bool) {
	n := len(d.recent)
	if n >= d.repetitions {
		last := d.recent[n-d.repetitions:]
		same := true
		for _, fp := range last[1:] {
			if fp != last[0] {
				same = false
				break
			}
		}
		if same {
			return Verdict{
				Fingerprint: last[0],
				Diagnostic:  fmt.Sprintf("action '%s' repeated %d times in a row", last[0], d.repetitions),
			}, true
		}
	}

	if n >= alternationSpan {
		a, b, c, e := d.recent[n-4], d.recent[n-3], d.recent[n-2], d.recent[n-1]
		if a == c && b == e && a != b {
			return Verdict{
				Fingerprint: e,
				Alternating: true,
				Diagnostic:  fmt.Sprintf("alternating between '%s' and '%s'", a, b),
			}, true
		}
	}
	return Verdict{}, false
}

// Reset clears the buffer.
func (d *Detector) Reset() {
	d.recent = d.recent[:0]
}

// Len returns the number of buffered fingerprints.
func (d *Detector) Len() int {
	return len(d.recent)
}

// Guidance renders the error text handed back to the model in place of the
// action result.
func Guidance(v Verdict, repetitions int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOOP DETECTED: %s.\n\n", v.Diagnostic)
	if v.Alternating {
		b.WriteString("You keep switching between the same two actions without progress.\n")
	} else {
		fmt.Fprintf(&b, "You repeated the same action (%s) %d+ times in a row.\n", v.Fingerprint, repetitions)
	}
	b.WriteString("The action was NOT executed. Try a different approach or finish with complete_task.\n")
	b.WriteString("Options: 1) use another element or selector 2) scroll to load more content ")
	b.WriteString("3) call complete_task if you already have the data")
	return b.String()
}
