// Package approval brokers the questions the agent needs a human to answer:
// confirmations of risky actions and clarifying questions from the model.
// Requests go out as events; answers come back through HandleResponse from
// whichever goroutine owns the user interface.
package approval

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// ErrTimeout is returned when nobody answered in time.
var ErrTimeout = errors.New("request timed out")

// EventEmitter is a function type for emitting events
type EventEmitter func(event *types.AgentEvent)

// Response answers a pending request.
type Response struct {
	RequestID string
	Answer    string
	Approved  bool
}

// Approve creates a positive confirmation response.
func Approve(requestID string) *Response {
	return &Response{RequestID: requestID, Approved: true}
}

// Reject creates a negative confirmation response.
func Reject(requestID string) *Response {
	return &Response{RequestID: requestID}
}

// Answer creates a response to a question.
func Answer(requestID, answer string) *Response {
	return &Response{RequestID: requestID, Answer: answer, Approved: true}
}

type requestKind int

const (
	kindConfirmation requestKind = iota
	kindQuestion
)

// Manager tracks pending requests. A zero timeout waits until the context
// is cancelled.
type Manager struct {
	emitEvent EventEmitter
	pending   map[string]*pendingRequest
	timeout   time.Duration
	mu        sync.Mutex
}

type pendingRequest struct {
	response  chan *Response
	id        string
	kind      requestKind
	closeOnce sync.Once
}

// NewManager creates a new approval manager
func NewManager(timeout time.Duration, emitEvent EventEmitter) *Manager {
	if emitEvent == nil {
		emitEvent = func(*types.AgentEvent) {}
	}
	return &Manager{
		timeout:   timeout,
		pending:   make(map[string]*pendingRequest),
		emitEvent: emitEvent,
	}
}

// HandleResponse delivers a response to the matching pending request. It
// reports whether a request was waiting for it.
func (m *Manager) HandleResponse(response *Response) bool {
	if response == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pr, ok := m.pending[response.RequestID]
	if !ok {
		return false
	}

	select {
	case pr.response <- response:
		return true
	default:
		// a response was already delivered or cleanup has started
		return false
	}
}

// Pending returns the IDs of requests awaiting a response.
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) setupPending(kind requestKind) *pendingRequest {
	pr := &pendingRequest{
		id:       uuid.New().String(),
		kind:     kind,
		response: make(chan *Response, 1),
	}
	m.mu.Lock()
	m.pending[pr.id] = pr
	m.mu.Unlock()
	return pr
}

// cleanupPending removes the request and closes its channel exactly once.
func (m *Manager) cleanupPending(pr *pendingRequest) {
	m.mu.Lock()
	_, ok := m.pending[pr.id]
	if ok {
		delete(m.pending, pr.id)
	}
	m.mu.Unlock()

	if ok {
		pr.closeOnce.Do(func() {
			close(pr.response)
		})
	}
}
