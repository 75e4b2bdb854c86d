package context

import "fmt"

// Frequency selects when a screenshot accompanies the prompt.
type Frequency string

const (
	// FrequencyAlways attaches a screenshot every turn.
	FrequencyAlways Frequency = "always"
	// FrequencyOnStateChange attaches one when the page location changed.
	FrequencyOnStateChange Frequency = "on-state-change"
	// FrequencyOnFailure attaches one after a failed action.
	FrequencyOnFailure Frequency = "on-failure"
)

// ParseFrequency validates a frequency name.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyAlways, FrequencyOnStateChange, FrequencyOnFailure:
		return f, nil
	default:
		return "", fmt.Errorf("unknown vision frequency %q", s)
	}
}

// VisualPolicy decides, once per iteration, whether to attach a screenshot.
type VisualPolicy struct {
	Frequency Frequency
	lastURL   string
	Enabled   bool
	FullPage  bool
	observed  bool
}

// Decide evaluates the policy for the current location and records it.
func (p *VisualPolicy) Decide(url string, lastActionFailed bool) bool {
	changed := !p.observed || url != p.lastURL
	p.lastURL = url
	p.observed = true

	if !p.Enabled {
		return false
	}
	switch p.Frequency {
	case FrequencyAlways:
		return true
	case FrequencyOnFailure:
		return lastActionFailed
	default:
		return changed
	}
}

// Reset forgets the last observed location.
func (p *VisualPolicy) Reset() {
	p.lastURL = ""
	p.observed = false
}
