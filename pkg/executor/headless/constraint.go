package headless

import (
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
)

// ConstraintManager checks every browser action of a headless run against
// the run file limits and keeps the violations for the report.
type ConstraintManager struct {
	config *ConstraintConfig
	mode   ExecutionMode

	// Runtime state tracking
	tokensUsed int
	violations []ConstraintViolation
	startTime  time.Time

	// Pattern matching
	patternMatcher *PatternMatcher

	mu sync.RWMutex
}

// ConstraintViolation is the error returned for a refused action or an
// exhausted limit.
type ConstraintViolation struct {
	Type    ViolationType          `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation (%s): %s", e.Type, e.Message)
}

// ViolationType identifies the type of constraint that was violated
type ViolationType string

const (
	ViolationURLPattern      ViolationType = "url_pattern"
	ViolationToolRestriction ViolationType = "tool_restriction"
	ViolationTokenLimit      ViolationType = "token_limit"
	ViolationObserveMode     ViolationType = "observe_mode"
)

// NewConstraintManager compiles the URL patterns of config.
func NewConstraintManager(config ConstraintConfig, mode ExecutionMode) (*ConstraintManager, error) {
	patternMatcher, err := NewPatternMatcher(config.AllowedURLs, config.DeniedURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern matcher: %w", err)
	}

	return &ConstraintManager{
		config:         &config,
		mode:           mode,
		startTime:      time.Now(),
		patternMatcher: patternMatcher,
	}, nil
}

// ValidateAction checks a browser action before it runs. url is the
// destination for navigation tools and empty otherwise. Rejections are
// remembered for the execution summary.
func (cm *ConstraintManager) ValidateAction(kind tools.Kind, url string) error {
	violation := cm.check(kind, url)
	if violation == nil {
		return nil
	}

	cm.mu.Lock()
	cm.violations = append(cm.violations, *violation)
	cm.mu.Unlock()
	return violation
}

func (cm *ConstraintManager) check(kind tools.Kind, url string) *ConstraintViolation {
	name := kind.String()

	// Control tools are always allowed
	if isControlTool(kind) {
		return nil
	}

	if cm.mode == ModeObserve && isInteractiveTool(kind) {
		return &ConstraintViolation{
			Type:    ViolationObserveMode,
			Message: fmt.Sprintf("tool '%s' is not allowed in observe mode", name),
			Details: map[string]interface{}{
				"tool": name,
				"mode": string(cm.mode),
			},
		}
	}

	if len(cm.config.AllowedTools) > 0 {
		allowed := false
		for _, allowedTool := range cm.config.AllowedTools {
			if allowedTool == name {
				allowed = true
				break
			}
		}
		if !allowed {
			return &ConstraintViolation{
				Type:    ViolationToolRestriction,
				Message: fmt.Sprintf("tool '%s' is not in allowed tools list", name),
				Details: map[string]interface{}{
					"tool":          name,
					"allowed_tools": cm.config.AllowedTools,
				},
			}
		}
	}

	if url != "" && !cm.patternMatcher.IsAllowed(url) {
		return &ConstraintViolation{
			Type:    ViolationURLPattern,
			Message: fmt.Sprintf("URL '%s' does not match allowed patterns", url),
			Details: map[string]interface{}{
				"url":          url,
				"allowed_urls": cm.config.AllowedURLs,
				"denied_urls":  cm.config.DeniedURLs,
			},
		}
	}

	return nil
}

// RecordTokenUsage adds tokens to the run total and fails once max_tokens
// is exceeded.
func (cm *ConstraintManager) RecordTokenUsage(tokens int) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.tokensUsed += tokens

	if cm.config.MaxTokens > 0 && cm.tokensUsed > cm.config.MaxTokens {
		v := ConstraintViolation{
			Type:    ViolationTokenLimit,
			Message: fmt.Sprintf("maximum token usage exceeded (%d)", cm.config.MaxTokens),
			Details: map[string]interface{}{
				"max_tokens":  cm.config.MaxTokens,
				"tokens_used": cm.tokensUsed,
			},
		}
		cm.violations = append(cm.violations, v)
		return &v
	}

	return nil
}

// GetCurrentState returns a copy of the counters and violations.
func (cm *ConstraintManager) GetCurrentState() *ConstraintState {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return &ConstraintState{
		Violations: append([]ConstraintViolation(nil), cm.violations...),
		TokensUsed: cm.tokensUsed,
		Elapsed:    time.Since(cm.startTime),
	}
}

// ConstraintState is a snapshot for the run report.
type ConstraintState struct {
	Violations []ConstraintViolation
	TokensUsed int
	Elapsed    time.Duration
}

// isInteractiveTool returns true if the tool changes page state beyond
// navigation
func isInteractiveTool(kind tools.Kind) bool {
	switch kind {
	case tools.KindClick, tools.KindClickAt, tools.KindTypeText, tools.KindSelectOption:
		return true
	default:
		return false
	}
}

// isControlTool returns true for tools that steer the run itself. They are
// needed to finish a task and never touch the page.
func isControlTool(kind tools.Kind) bool {
	switch kind {
	case tools.KindCompleteTask, tools.KindAskUser:
		return true
	default:
		return false
	}
}

// PatternMatcher handles glob pattern matching for URL access control
type PatternMatcher struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewPatternMatcher compiles allow and deny URL globs.
func NewPatternMatcher(allowed, denied []string) (*PatternMatcher, error) {
	pm := &PatternMatcher{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		pm.allowedPatterns = append(pm.allowedPatterns, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		pm.deniedPatterns = append(pm.deniedPatterns, g)
	}

	return pm, nil
}

// IsAllowed returns true if the URL is allowed by the pattern rules
func (pm *PatternMatcher) IsAllowed(url string) bool {
	// Denied patterns take precedence
	for _, pattern := range pm.deniedPatterns {
		if pattern.Match(url) {
			return false
		}
	}

	if len(pm.allowedPatterns) == 0 {
		return true
	}

	for _, pattern := range pm.allowedPatterns {
		if pattern.Match(url) {
			return true
		}
	}

	return false
}
