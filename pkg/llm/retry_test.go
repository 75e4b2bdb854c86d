package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	errs  []error
	calls int
}

func (s *scriptedBackend) Send(ctx context.Context, req *Request) (*Response, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &Response{Text: "ok"}, nil
}

func (s *scriptedBackend) Shape() WireShape { return BlockEmbedded }
func (s *scriptedBackend) Model() string    { return "m" }
func (s *scriptedBackend) Provider() string { return "scripted" }

func newRetrying(b Backend, p RetryPolicy) (*RetryingBackend, *[]time.Duration) {
	var waits []time.Duration
	r := WithRetry(b, p).(*RetryingBackend)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

func TestRetryingBackend(t *testing.T) {
	rateLimited := NewStatusError("scripted", 429, "slow down")
	unavailable := NewStatusError("scripted", 503, "unavailable")
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 3 * time.Second}

	t.Run("recovers after transient errors", func(t *testing.T) {
		b := &scriptedBackend{errs: []error{rateLimited, unavailable}}
		r, waits := newRetrying(b, policy)

		resp, err := r.Send(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text)
		assert.Equal(t, 3, b.calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		b := &scriptedBackend{errs: []error{unavailable, unavailable, unavailable, unavailable, unavailable}}
		r, waits := newRetrying(b, policy)

		_, err := r.Send(context.Background(), &Request{})
		assert.Same(t, unavailable, err)
		assert.Equal(t, 4, b.calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, *waits)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		for _, err := range []error{
			NewStatusError("scripted", 401, "bad key"),
			&ProtocolFault{Reason: "no choices"},
			errors.New("marshal request"),
		} {
			b := &scriptedBackend{errs: []error{err}}
			r, waits := newRetrying(b, policy)

			_, got := r.Send(context.Background(), &Request{})
			assert.Equal(t, err, got)
			assert.Equal(t, 1, b.calls)
			assert.Empty(t, *waits)
		}
	})

	t.Run("honors retry after", func(t *testing.T) {
		hinted := NewStatusError("scripted", 429, "slow down")
		hinted.RetryAfter = 2500 * time.Millisecond
		b := &scriptedBackend{errs: []error{hinted}}
		r, waits := newRetrying(b, policy)

		_, err := r.Send(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{2500 * time.Millisecond}, *waits)
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := &scriptedBackend{errs: []error{rateLimited}}
		r, _ := newRetrying(b, policy)

		_, err := r.Send(ctx, &Request{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, b.calls)
	})
}

func TestWithRetryDisabled(t *testing.T) {
	b := &scriptedBackend{}
	assert.Same(t, Backend(b), WithRetry(b, RetryPolicy{}))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"soon", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRetryAfter(tt.value, now))
		})
	}
}
