// Package urlguard validates navigation targets before they reach the
// browser. A Validator is owned by whoever drives the browser; there is no
// package level instance.
package urlguard

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// DefaultAllowedSchemes are the schemes navigation may use.
	DefaultAllowedSchemes = []string{"http", "https"}
	// DefaultBlockedSchemes are rejected with an explicit security message.
	DefaultBlockedSchemes = []string{"file", "javascript", "data", "vbscript", "about"}
	// DefaultSpecialURLs are allowed verbatim even if their scheme is blocked.
	DefaultSpecialURLs = []string{"about:blank"}
)

// ValidationError reports a rejected URL.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("url %q rejected: %s", e.URL, e.Reason)
}

// Config lists the rules of a Validator. Empty scheme lists fall back to
// the defaults. Host patterns are globs with '.' as separator, so
// "*.example.com" matches one label and "**.example.com" any depth.
type Config struct {
	AllowedSchemes []string
	BlockedSchemes []string
	SpecialURLs    []string
	AllowedHosts   []string
	DeniedHosts    []string
}

// Validator checks URLs against scheme and host rules.
type Validator struct {
	allowed      map[string]bool
	blocked      map[string]bool
	special      map[string]bool
	allowedHosts []glob.Glob
	deniedHosts  []glob.Glob
}

// New compiles a Validator.
func New(cfg Config) (*Validator, error) {
	v := &Validator{
		allowed: toSet(orDefault(cfg.AllowedSchemes, DefaultAllowedSchemes)),
		blocked: toSet(orDefault(cfg.BlockedSchemes, DefaultBlockedSchemes)),
		special: toSet(orDefault(cfg.SpecialURLs, DefaultSpecialURLs)),
	}

	var err error
	if v.allowedHosts, err = compileHosts(cfg.AllowedHosts); err != nil {
		return nil, fmt.Errorf("invalid allowed host pattern: %w", err)
	}
	if v.deniedHosts, err = compileHosts(cfg.DeniedHosts); err != nil {
		return nil, fmt.Errorf("invalid denied host pattern: %w", err)
	}
	return v, nil
}

// MustNew is New for static configurations known to be valid.
func MustNew(cfg Config) *Validator {
	v, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

func orDefault(values, def []string) []string {
	if len(values) == 0 {
		return def
	}
	return values
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}

func compileHosts(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p), '.')
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// scheme extracts the scheme of a raw URL. "localhost:3000" and
// "example.com:8080/x" have none.
func scheme(raw string) string {
	idx := strings.Index(raw, ":")
	if idx <= 0 {
		return ""
	}
	candidate := strings.ToLower(raw[:idx])
	for i, r := range candidate {
		isAlpha := r >= 'a' && r <= 'z'
		isOther := (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '.'
		if !isAlpha && (i == 0 || !isOther) {
			return ""
		}
	}
	rest := raw[idx+1:]
	if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
		return ""
	}
	return candidate
}

// Validate checks a URL. A URL without scheme is accepted; Sanitize adds
// https:// to it.
func (v *Validator) Validate(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &ValidationError{URL: raw, Reason: "url is empty"}
	}
	if v.special[strings.ToLower(trimmed)] {
		return nil
	}

	s := scheme(trimmed)
	if s != "" && v.blocked[s] {
		return &ValidationError{URL: raw, Reason: fmt.Sprintf("scheme '%s' is blocked for security reasons, use http:// or https://", s)}
	}
	if s != "" && !v.allowed[s] {
		return &ValidationError{URL: raw, Reason: fmt.Sprintf("scheme '%s' is not allowed", s)}
	}

	full := trimmed
	if s == "" {
		full = "https://" + trimmed
	}
	u, err := url.Parse(full)
	if err != nil {
		return &ValidationError{URL: raw, Reason: fmt.Sprintf("invalid url: %v", err)}
	}
	if u.Hostname() == "" {
		return &ValidationError{URL: raw, Reason: "url has no host"}
	}
	if !v.hostAllowed(strings.ToLower(u.Hostname())) {
		return &ValidationError{URL: raw, Reason: fmt.Sprintf("host '%s' is not permitted", u.Hostname())}
	}
	return nil
}

func (v *Validator) hostAllowed(host string) bool {
	for _, g := range v.deniedHosts {
		if g.Match(host) {
			return false
		}
	}
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, g := range v.allowedHosts {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// Sanitize validates a URL and returns it with a scheme.
func (v *Validator) Sanitize(raw string) (string, error) {
	if err := v.Validate(raw); err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(raw)
	if v.special[strings.ToLower(trimmed)] || scheme(trimmed) != "" {
		return trimmed, nil
	}
	return "https://" + trimmed, nil
}

// IsSafe reports whether the URL passes validation and the reason when it
// does not.
func (v *Validator) IsSafe(raw string) (bool, string) {
	if err := v.Validate(raw); err != nil {
		return false, err.Error()
	}
	return true, ""
}
