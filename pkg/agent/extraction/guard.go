// Package extraction keeps the most recent page extraction so that a model
// which finishes a data task with a vague summary does not lose the data it
// already collected.
package extraction

import (
	"strings"
	"sync"
)

// DefaultMinLength is the result length below which a completion of an
// extraction task is considered incomplete.
const DefaultMinLength = 50

// DefaultKeywords mark a task description as extraction oriented.
var DefaultKeywords = []string{
	"extract", "read", "list", "show", "find", "tell me", "collect", "summarize", "email",
	"извлеч", "прочита", "расскаж", "покаж", "найди", "список", "письм",
}

// DefaultBoilerplate are phrases that describe the process instead of
// carrying data.
var DefaultBoilerplate = []string{
	"data extracted", "extracted the data", "data has been extracted", "analyzed", "analysed",
	"information retrieved", "data retrieved", "information obtained",
	"проанализиро", "извлечены данные", "извлечено", "данные получены", "информация получена",
}

// Guard is a single-slot store of the last extraction payload.
type Guard struct {
	keywords    []string
	boilerplate []string
	shadow      string
	minLength   int
	hasShadow   bool
	mu          sync.Mutex
}

// Option configures a Guard.
type Option func(*Guard)

// WithKeywords replaces the extraction intent keywords.
func WithKeywords(keywords []string) Option {
	return func(g *Guard) {
		if len(keywords) > 0 {
			g.keywords = lowerAll(keywords)
		}
	}
}

// WithBoilerplate replaces the boilerplate phrases.
func WithBoilerplate(phrases []string) Option {
	return func(g *Guard) {
		if len(phrases) > 0 {
			g.boilerplate = lowerAll(phrases)
		}
	}
}

// WithMinLength sets the minimum acceptable result length.
func WithMinLength(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.minLength = n
		}
	}
}

// New creates a Guard with an empty slot.
func New(opts ...Option) *Guard {
	g := &Guard{
		keywords:    lowerAll(DefaultKeywords),
		boilerplate: lowerAll(DefaultBoilerplate),
		minLength:   DefaultMinLength,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

// Record overwrites the slot with the latest extraction payload.
func (g *Guard) Record(payload string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shadow = payload
	g.hasShadow = true
}

// Pending reports whether the slot holds a payload.
func (g *Guard) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasShadow
}

// Clear empties the slot.
func (g *Guard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shadow = ""
	g.hasShadow = false
}

// IsExtractionTask reports whether the task description asks for data.
func (g *Guard) IsExtractionTask(description string) bool {
	lower := strings.ToLower(description)
	for _, kw := range g.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Result string
	// Substituted is set when the stored payload replaced the model result.
	Substituted bool
	// Short is set when an extraction result was kept although it is short.
	Short bool
}

// Resolve picks the final task result. For extraction tasks an empty, short
// or boilerplate model result is replaced by the stored payload when there
// is one. The slot is cleared on every call.
func (g *Guard) Resolve(modelResult string, extractionTask bool) Resolution {
	g.mu.Lock()
	defer g.mu.Unlock()

	shadow, has := g.shadow, g.hasShadow
	g.shadow = ""
	g.hasShadow = false

	res := Resolution{Result: modelResult}
	if !extractionTask {
		return res
	}

	if g.incomplete(modelResult) && has && strings.TrimSpace(shadow) != "" {
		res.Result = shadow
		res.Substituted = true
		return res
	}

	if modelResult != "" && len([]rune(modelResult)) < 2*g.minLength {
		res.Short = true
	}
	return res
}

func (g *Guard) incomplete(result string) bool {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return true
	}
	if len([]rune(result)) < g.minLength {
		return true
	}
	lower := strings.ToLower(result)
	for _, phrase := range g.boilerplate {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
