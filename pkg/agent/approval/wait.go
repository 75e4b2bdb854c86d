package approval

import (
	"context"
	"time"
)

// waitForResponse blocks until a response arrives, the timeout fires or the
// context is cancelled.
func (m *Manager) waitForResponse(ctx context.Context, pr *pendingRequest) (*Response, error) {
	var timeoutC <-chan time.Time
	if m.timeout > 0 {
		timer := time.NewTimer(m.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case <-timeoutC:
		return nil, ErrTimeout

	case response, ok := <-pr.response:
		if !ok {
			return &Response{RequestID: pr.id}, nil
		}
		return response, nil
	}
}
