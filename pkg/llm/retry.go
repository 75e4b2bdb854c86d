package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
)

var retryLog *logging.Logger

func init() {
	var err error
	retryLog, err = logging.NewLogger("llm-retry")
	if err != nil {
		retryLog.Warnf("Failed to initialize retry logger, using stderr fallback: %v", err)
	}
}

// RetryPolicy bounds how a backend call is repeated after a retryable
// BackendError. Delays double from BaseDelay up to MaxDelay; a Retry-After
// hint from the service replaces the computed delay but is still capped.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times over roughly seven seconds.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

func (p RetryPolicy) delay(attempt int, hint time.Duration) time.Duration {
	d := hint
	if d <= 0 {
		d = p.BaseDelay << attempt
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// RetryingBackend wraps a Backend and repeats Send after transient failures
// such as rate limits, 5xx replies and dropped connections. Other errors and
// a done context end the call at once.
type RetryingBackend struct {
	Backend
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps b with the given policy. A policy without retries returns
// b unchanged.
func WithRetry(b Backend, policy RetryPolicy) Backend {
	if policy.MaxRetries <= 0 {
		return b
	}
	return &RetryingBackend{Backend: b, policy: policy, sleep: sleepContext}
}

// Send calls the wrapped backend, retrying retryable errors.
func (r *RetryingBackend) Send(ctx context.Context, req *Request) (*Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := r.Backend.Send(ctx, req)
		if err == nil {
			return resp, nil
		}

		var be *BackendError
		if !errors.As(err, &be) || !be.Retryable || attempt >= r.policy.MaxRetries {
			return nil, err
		}

		d := r.policy.delay(attempt, be.RetryAfter)
		retryLog.Warnf("%s call failed (attempt %d/%d), retrying in %s: %v",
			r.Provider(), attempt+1, r.policy.MaxRetries+1, d, err)
		if err := r.sleep(ctx, d); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP
// date. It returns 0 when the header is absent or unusable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
