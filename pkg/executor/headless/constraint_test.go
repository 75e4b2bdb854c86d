package headless

import (
	"errors"
	"testing"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
)

func TestConstraintManager_ValidateAction(t *testing.T) {
	tests := []struct {
		name     string
		config   ConstraintConfig
		mode     ExecutionMode
		kind     tools.Kind
		url      string
		wantType ViolationType
	}{
		{
			name: "observe mode allows navigation",
			mode: ModeObserve,
			kind: tools.KindNavigate,
			url:  "https://example.com",
		},
		{
			name:     "observe mode refuses clicks",
			mode:     ModeObserve,
			kind:     tools.KindClick,
			wantType: ViolationObserveMode,
		},
		{
			name:     "observe mode refuses typing",
			mode:     ModeObserve,
			kind:     tools.KindTypeText,
			wantType: ViolationObserveMode,
		},
		{
			name: "act mode allows typing",
			mode: ModeAct,
			kind: tools.KindTypeText,
		},
		{
			name:   "tool in allow list",
			config: ConstraintConfig{AllowedTools: []string{"navigate", "extract_data"}},
			mode:   ModeAct,
			kind:   tools.KindExtractData,
		},
		{
			name:     "tool outside allow list",
			config:   ConstraintConfig{AllowedTools: []string{"navigate", "extract_data"}},
			mode:     ModeAct,
			kind:     tools.KindScroll,
			wantType: ViolationToolRestriction,
		},
		{
			name:   "control tools bypass the allow list",
			config: ConstraintConfig{AllowedTools: []string{"navigate"}},
			mode:   ModeObserve,
			kind:   tools.KindCompleteTask,
		},
		{
			name:   "url matches allowed pattern",
			config: ConstraintConfig{AllowedURLs: []string{"https://*.example.com/*"}},
			mode:   ModeObserve,
			kind:   tools.KindNavigate,
			url:    "https://shop.example.com/pricing",
		},
		{
			name:     "url outside allowed patterns",
			config:   ConstraintConfig{AllowedURLs: []string{"https://*.example.com/*"}},
			mode:     ModeObserve,
			kind:     tools.KindNavigate,
			url:      "https://evil.test/",
			wantType: ViolationURLPattern,
		},
		{
			name: "denied pattern wins",
			config: ConstraintConfig{
				AllowedURLs: []string{"https://*.example.com/*"},
				DeniedURLs:  []string{"*/checkout*"},
			},
			mode:     ModeObserve,
			kind:     tools.KindNewTab,
			url:      "https://shop.example.com/checkout",
			wantType: ViolationURLPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, err := NewConstraintManager(tt.config, tt.mode)
			if err != nil {
				t.Fatalf("Failed to create constraint manager: %v", err)
			}

			err = cm.ValidateAction(tt.kind, tt.url)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("ValidateAction(%s, %q) = %v, expected nil", tt.kind, tt.url, err)
				}
				return
			}

			var violation *ConstraintViolation
			if !errors.As(err, &violation) {
				t.Fatalf("ValidateAction(%s, %q) = %v, expected a constraint violation", tt.kind, tt.url, err)
			}
			if violation.Type != tt.wantType {
				t.Errorf("violation type = %s, expected %s", violation.Type, tt.wantType)
			}
			if got := len(cm.GetCurrentState().Violations); got != 1 {
				t.Errorf("recorded %d violations, expected 1", got)
			}
		})
	}
}

func TestConstraintManager_RecordTokenUsage(t *testing.T) {
	cm, err := NewConstraintManager(ConstraintConfig{MaxTokens: 1000}, ModeObserve)
	if err != nil {
		t.Fatalf("Failed to create constraint manager: %v", err)
	}

	if err := cm.RecordTokenUsage(600); err != nil {
		t.Fatalf("unexpected violation at 600 tokens: %v", err)
	}
	if err := cm.RecordTokenUsage(400); err != nil {
		t.Fatalf("unexpected violation at exactly the limit: %v", err)
	}

	err = cm.RecordTokenUsage(1)
	var violation *ConstraintViolation
	if !errors.As(err, &violation) || violation.Type != ViolationTokenLimit {
		t.Fatalf("expected token limit violation, got %v", err)
	}

	state := cm.GetCurrentState()
	if state.TokensUsed != 1001 {
		t.Errorf("TokensUsed = %d, expected 1001", state.TokensUsed)
	}
}

func TestConstraintManager_NoTokenLimit(t *testing.T) {
	cm, err := NewConstraintManager(ConstraintConfig{}, ModeAct)
	if err != nil {
		t.Fatalf("Failed to create constraint manager: %v", err)
	}
	if err := cm.RecordTokenUsage(10_000_000); err != nil {
		t.Errorf("expected no limit, got %v", err)
	}
}

func TestNewPatternMatcher_InvalidPattern(t *testing.T) {
	if _, err := NewPatternMatcher([]string{"[invalid"}, nil); err == nil {
		t.Error("expected error for invalid allowed pattern")
	}
	if _, err := NewPatternMatcher(nil, []string{"[invalid"}); err == nil {
		t.Error("expected error for invalid denied pattern")
	}
}

func TestPatternMatcher_IsAllowed(t *testing.T) {
	pm, err := NewPatternMatcher(
		[]string{"https://example.com/*", "https://docs.example.com/*"},
		[]string{"*logout*"},
	)
	if err != nil {
		t.Fatalf("Failed to create pattern matcher: %v", err)
	}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/pricing", true},
		{"https://docs.example.com/api/v1", true},
		{"https://example.com/account/logout", false},
		{"http://example.com/pricing", false},
		{"https://example.org/", false},
	}
	for _, tt := range tests {
		if got := pm.IsAllowed(tt.url); got != tt.want {
			t.Errorf("IsAllowed(%q) = %v, expected %v", tt.url, got, tt.want)
		}
	}
}
