// Package llm defines the contract between the agent loop and a language
// model backend.
//
// Backends send the whole conversation on every call and return either free
// text, tool calls or both. They differ only in how tool results are encoded
// on the wire, which is reported by Shape.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// WireShape identifies how tool results travel back to the model.
type WireShape int

const (
	// BlockEmbedded carries all results of one turn as tool_result blocks
	// inside a single user message.
	BlockEmbedded WireShape = iota

	// MessagePerResult carries each result as its own role=tool message
	// correlated by tool call ID.
	MessagePerResult
)

// String returns the shape name.
func (s WireShape) String() string {
	switch s {
	case BlockEmbedded:
		return "block-embedded"
	case MessagePerResult:
		return "message-per-result"
	default:
		return fmt.Sprintf("WireShape(%d)", int(s))
	}
}

// Request is one backend call.
type Request struct {
	SystemPrompt string
	History      []*types.Message
	Tools        []types.ToolSchema
}

// Response is the decoded reply of a backend call.
type Response struct {
	Text       string
	StopReason string
	ToolCalls  []types.ToolCall
	Usage      types.Usage
}

// HasToolCalls reports whether the model requested any tool.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Backend sends a conversation to a model.
//
// Connection, authentication and quota failures are returned as
// *BackendError. A reply that cannot be decoded is returned as
// *ProtocolFault.
type Backend interface {
	Send(ctx context.Context, req *Request) (*Response, error)

	// Shape reports the tool-result encoding the backend expects.
	Shape() WireShape

	Model() string
	Provider() string
}

// BackendError is a transport-level failure talking to the model service.
// RetryAfter carries the service's Retry-After hint, if any.
type BackendError struct {
	Err        error
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Retryable  bool
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s backend error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s backend error: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewStatusError builds a BackendError from an HTTP status and body.
// 429 and 5xx are marked retryable.
func NewStatusError(provider string, status int, body string) *BackendError {
	return &BackendError{
		Provider:   provider,
		StatusCode: status,
		Retryable:  status == 429 || status >= 500,
		Err:        fmt.Errorf("%s", body),
	}
}

// ProtocolFault means the backend replied with something the loop cannot use:
// an undecodable body, no choices, an unknown tool or malformed arguments.
type ProtocolFault struct {
	Err    error
	Reason string
}

func (e *ProtocolFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol fault: %s: %v", e.Reason, e.Err)
	}
	return "protocol fault: " + e.Reason
}

func (e *ProtocolFault) Unwrap() error { return e.Err }

// IsBackendError reports whether err wraps a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsProtocolFault reports whether err wraps a *ProtocolFault.
func IsProtocolFault(err error) bool {
	var pf *ProtocolFault
	return errors.As(err, &pf)
}
