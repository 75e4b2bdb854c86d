package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// eventRecorder captures emitted events and answers requests through a hook.
type eventRecorder struct {
	onEvent func(*types.AgentEvent)
	events  []*types.AgentEvent
	mu      sync.Mutex
}

func (r *eventRecorder) emit(event *types.AgentEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	hook := r.onEvent
	r.mu.Unlock()
	if hook != nil {
		go hook(event)
	}
}

func (r *eventRecorder) kinds() []types.AgentEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.AgentEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestConfirmGranted(t *testing.T) {
	rec := &eventRecorder{}
	m := NewManager(time.Second, rec.emit)
	rec.onEvent = func(e *types.AgentEvent) {
		if e.Type == types.EventTypeConfirmationRequest {
			assert.Equal(t, "Click 'Delete'", e.Content)
			assert.Equal(t, "delete action", e.Reason)
			m.HandleResponse(Approve(e.RequestID))
		}
	}

	ok, err := m.Confirm(context.Background(), "Click 'Delete'", "delete action")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []types.AgentEventType{types.EventTypeConfirmationRequest, types.EventTypeConfirmationGranted}, rec.kinds())
	assert.Empty(t, m.Pending())
}

func TestConfirmRejected(t *testing.T) {
	rec := &eventRecorder{}
	m := NewManager(time.Second, rec.emit)
	rec.onEvent = func(e *types.AgentEvent) {
		if e.Type == types.EventTypeConfirmationRequest {
			m.HandleResponse(Reject(e.RequestID))
		}
	}

	ok, err := m.Confirm(context.Background(), "Pay", "payment")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, rec.kinds(), types.EventTypeConfirmationRejected)
}

func TestConfirmTimeout(t *testing.T) {
	rec := &eventRecorder{}
	m := NewManager(20*time.Millisecond, rec.emit)

	ok, err := m.Confirm(context.Background(), "Pay", "payment")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, rec.kinds(), types.EventTypeConfirmationTimeout)
}

func TestConfirmWithoutTimeoutWaitsForContext(t *testing.T) {
	m := NewManager(0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := m.Confirm(ctx, "Pay", "payment")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAsk(t *testing.T) {
	rec := &eventRecorder{}
	m := NewManager(time.Second, rec.emit)
	rec.onEvent = func(e *types.AgentEvent) {
		if e.Type == types.EventTypeQuestionRequest {
			assert.Equal(t, []string{"work", "personal"}, e.Options)
			m.HandleResponse(Answer(e.RequestID, "work"))
		}
	}

	answer, err := m.Ask(context.Background(), "Which account?", []string{"work", "personal"})
	require.NoError(t, err)
	assert.Equal(t, "work", answer)
	assert.Contains(t, rec.kinds(), types.EventTypeQuestionAnswered)
}

func TestAskTimeout(t *testing.T) {
	m := NewManager(10*time.Millisecond, nil)
	_, err := m.Ask(context.Background(), "Which account?", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHandleResponseUnknownRequest(t *testing.T) {
	m := NewManager(time.Second, nil)
	assert.False(t, m.HandleResponse(Approve("missing")))
	assert.False(t, m.HandleResponse(nil))
}

func TestHandleResponseOnlyOnce(t *testing.T) {
	m := NewManager(time.Second, nil)
	pr := m.setupPending(kindConfirmation)

	assert.True(t, m.HandleResponse(Approve(pr.id)))
	assert.False(t, m.HandleResponse(Approve(pr.id)), "buffer holds a single response")

	m.cleanupPending(pr)
	m.cleanupPending(pr)
	assert.False(t, m.HandleResponse(Approve(pr.id)))
}
