// Package risk classifies browser actions by how consequential they are and
// asks a human before the consequential ones run.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

var riskLog *logging.Logger

func init() {
	var err error
	riskLog, err = logging.NewLogger("risk")
	if err != nil {
		riskLog.Warnf("risk gate logging to stderr: %v", err)
	}
}

// Level orders risk from harmless to consequential.
type Level int

const (
	LevelSafe Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelSafe:
		return "safe"
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	default:
		return "high"
	}
}

// RequiresConfirmation reports whether the level needs explicit consent.
func (l Level) RequiresConfirmation() bool {
	return l >= LevelMedium
}

// Assessment is the classification of one invocation. It is computed per
// invocation and never cached.
type Assessment struct {
	Category Category
	Reason   string
	Level    Level
}

// Decision is the outcome of Check.
type Decision struct {
	Reason     string
	Assessment Assessment
	Allowed    bool
	// Asked is set when the Confirmer was consulted.
	Asked bool
}

// Confirmer obtains explicit consent. It may block for as long as the user
// needs unless the context is cancelled.
type Confirmer interface {
	Confirm(ctx context.Context, description, reason string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, description, reason string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, description, reason string) (bool, error) {
	return f(ctx, description, reason)
}

// AutoConfirmer answers every request with the same decision. Used by
// non-interactive surfaces.
type AutoConfirmer bool

// Confirm returns the fixed decision.
func (a AutoConfirmer) Confirm(context.Context, string, string) (bool, error) {
	return bool(a), nil
}

// RejectedByUser is the reason reported when consent is refused.
const RejectedByUser = "rejected by user"

// Config customizes a Gate. Empty fields use the package defaults.
type Config struct {
	Keywords        map[Category][]string
	URLPatterns     []string
	SensitiveFields []string
	// Disabled makes Check allow everything without asking.
	Disabled bool
}

// Gate assesses invocations and enforces the confirmation protocol.
type Gate struct {
	confirmer       Confirmer
	keywords        map[Category][]string
	urlPatterns     []glob.Glob
	sensitiveFields []string
	disabled        bool
}

// New creates a Gate. A nil confirmer refuses every confirmation.
func New(cfg Config, confirmer Confirmer) (*Gate, error) {
	g := &Gate{
		confirmer:       confirmer,
		keywords:        make(map[Category][]string, len(categoryOrder)),
		sensitiveFields: cfg.SensitiveFields,
		disabled:        cfg.Disabled,
	}
	if g.confirmer == nil {
		g.confirmer = AutoConfirmer(false)
	}

	for _, cat := range categoryOrder {
		words := DefaultKeywords[cat]
		if custom, ok := cfg.Keywords[cat]; ok && len(custom) > 0 {
			words = custom
		}
		for _, w := range words {
			g.keywords[cat] = append(g.keywords[cat], strings.ToLower(w))
		}
	}
	if len(g.sensitiveFields) == 0 {
		g.sensitiveFields = DefaultSensitiveFields
	}

	patterns := cfg.URLPatterns
	if len(patterns) == 0 {
		patterns = DefaultURLPatterns
	}
	for _, p := range patterns {
		compiled, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern '%s': %w", p, err)
		}
		g.urlPatterns = append(g.urlPatterns, compiled)
	}
	return g, nil
}

// baseLevels covers tools without target-specific rules.
var baseLevels = map[tools.Kind]Level{
	tools.KindScroll:       LevelSafe,
	tools.KindWait:         LevelSafe,
	tools.KindExtractData:  LevelSafe,
	tools.KindGoBack:       LevelSafe,
	tools.KindRefresh:      LevelSafe,
	tools.KindScreenshot:   LevelSafe,
	tools.KindAskUser:      LevelSafe,
	tools.KindCompleteTask: LevelSafe,
}

// Assess classifies an invocation against the current snapshot.
func (g *Gate) Assess(inv tools.Invocation, snap *types.Snapshot) Assessment {
	currentURL := ""
	if snap != nil {
		currentURL = snap.URL
	}

	switch in := inv.Input.(type) {
	case tools.NavigateInput:
		return g.assessDestination(in.URL)
	case tools.NewTabInput:
		return g.assessDestination(in.URL)

	case tools.ClickInput:
		return g.assessClick(targetLabel(in.Target, snap), currentURL)

	case tools.ClickAtInput:
		label := ""
		if in.ElementIndex != nil {
			if el, ok := snap.ElementAt(*in.ElementIndex); ok {
				label = el.Label()
			}
		}
		return g.assessClick(label, currentURL)

	case tools.TypeTextInput:
		fields := []string{in.Selector}
		if in.HasIndex() {
			if el, ok := snap.ElementAt(in.Index()); ok {
				fields = append(fields, el.Name, el.Type, el.Placeholder, el.AriaLabel, el.Selector)
			}
		}
		if g.isSensitiveField(fields...) {
			return Assessment{Level: LevelMedium, Category: CategorySensitive, Reason: "typing into a sensitive field"}
		}
		if cat, ok := g.matchCategory(in.Text, CategorySensitive); ok {
			return Assessment{Level: LevelMedium, Category: cat, Reason: fmt.Sprintf("typing sensitive data (%s)", cat)}
		}
		return Assessment{Level: LevelLow}

	case tools.SelectOptionInput:
		if cat, ok := g.matchCategory(in.Value); ok {
			return Assessment{Level: LevelMedium, Category: cat, Reason: fmt.Sprintf("selecting a consequential option (%s): '%s'", cat, in.Value)}
		}
		return Assessment{Level: LevelLow}
	}

	if lvl, ok := baseLevels[inv.Kind]; ok {
		return Assessment{Level: lvl}
	}
	return Assessment{Level: LevelLow}
}

func (g *Gate) assessDestination(target string) Assessment {
	if g.isHighRiskURL(target) {
		return Assessment{Level: LevelMedium, Category: CategoryPayment, Reason: fmt.Sprintf("navigating to a payment or order page: %s", target)}
	}
	return Assessment{Level: LevelSafe}
}

func (g *Gate) assessClick(label, currentURL string) Assessment {
	if cat, ok := g.matchCategory(label); ok {
		return Assessment{Level: LevelHigh, Category: cat, Reason: fmt.Sprintf("click on an element with a consequential action (%s): '%s'", cat, label)}
	}
	if g.isHighRiskURL(currentURL) {
		return Assessment{Level: LevelMedium, Category: CategoryPayment, Reason: "click on a payment or order page"}
	}
	return Assessment{Level: LevelLow}
}

// targetLabel resolves what the user would read on the target element. Index
// targets resolve through the snapshot; otherwise the selector is used.
func targetLabel(t tools.Target, snap *types.Snapshot) string {
	if t.HasIndex() {
		if el, ok := snap.ElementAt(t.Index()); ok {
			if label := el.Label(); label != "" {
				return label
			}
		}
	}
	return t.Selector
}

// Check assesses an invocation and, for medium and high risk, asks the
// Confirmer before returning. A refusal is a Decision, not an error; only a
// cancelled context is returned as error.
func (g *Gate) Check(ctx context.Context, inv tools.Invocation, snap *types.Snapshot) (Decision, error) {
	a := g.Assess(inv, snap)
	d := Decision{Assessment: a, Allowed: true}

	riskLog.Debugf("assessed %s: level=%s category=%s reason=%q", inv.Name(), a.Level, a.Category, a.Reason)

	if g.disabled || !a.Level.RequiresConfirmation() {
		return d, nil
	}

	description := Describe(inv, snap)
	d.Asked = true
	ok, err := g.confirmer.Confirm(ctx, description, a.Reason)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{Assessment: a, Asked: true, Reason: RejectedByUser}, ctxErr
		}
		riskLog.Warnf("confirmation for %s failed, treating as refusal: %v", inv.Name(), err)
		ok = false
	}
	if !ok {
		riskLog.Infof("action refused: %s (%s)", description, a.Reason)
		d.Allowed = false
		d.Reason = RejectedByUser
		return d, nil
	}
	riskLog.Infof("action confirmed: %s", description)
	return d, nil
}

// Describe renders an invocation for a confirmation prompt. Typed text is
// masked.
func Describe(inv tools.Invocation, snap *types.Snapshot) string {
	page := ""
	if snap != nil && snap.URL != "" {
		page = " on " + snap.URL
	}

	switch in := inv.Input.(type) {
	case tools.NavigateInput:
		return "Navigate to " + in.URL
	case tools.NewTabInput:
		return "Open new tab at " + in.Destination()
	case tools.ClickInput:
		label := targetLabel(in.Target, snap)
		if label == "" {
			label = fmt.Sprintf("element [%d]", in.Index())
		}
		return fmt.Sprintf("Click '%s'%s", label, page)
	case tools.ClickAtInput:
		if in.ElementIndex != nil {
			if el, ok := snap.ElementAt(*in.ElementIndex); ok && el.Label() != "" {
				return fmt.Sprintf("Click '%s'%s", el.Label(), page)
			}
			return fmt.Sprintf("Click element [%d]%s", *in.ElementIndex, page)
		}
		if in.X != nil && in.Y != nil {
			return fmt.Sprintf("Click at (%d, %d)%s", *in.X, *in.Y, page)
		}
	case tools.TypeTextInput:
		return fmt.Sprintf("Type '%s' into '%s'%s", Mask(in.Text), targetLabel(in.Target, snap), page)
	case tools.SelectOptionInput:
		return fmt.Sprintf("Select '%s' in '%s'%s", in.Value, targetLabel(in.Target, snap), page)
	}

	params, _ := json.Marshal(inv.Params())
	return fmt.Sprintf("%s: %s", inv.Name(), params)
}

// Mask keeps the first three characters of a value.
func Mask(text string) string {
	r := []rune(text)
	if len(r) > 3 {
		return string(r[:3]) + "***"
	}
	return "***"
}
