package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := NewStatusError("openai", tt.status, "boom")
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestErrorClassification(t *testing.T) {
	be := &BackendError{Provider: "anthropic", Err: errors.New("dial tcp: refused")}
	wrapped := fmt.Errorf("send: %w", be)
	assert.True(t, IsBackendError(wrapped))
	assert.False(t, IsProtocolFault(wrapped))
	assert.Equal(t, "anthropic backend error: dial tcp: refused", be.Error())

	pf := &ProtocolFault{Reason: "no choices"}
	assert.True(t, IsProtocolFault(fmt.Errorf("x: %w", pf)))
	assert.Equal(t, "protocol fault: no choices", pf.Error())

	inner := errors.New("unexpected EOF")
	pf = &ProtocolFault{Reason: "decode body", Err: inner}
	assert.ErrorIs(t, pf, inner)
}

func TestWireShapeString(t *testing.T) {
	assert.Equal(t, "block-embedded", BlockEmbedded.String())
	assert.Equal(t, "message-per-result", MessagePerResult.String())
	assert.Equal(t, "WireShape(7)", WireShape(7).String())
}

func TestResponseHasToolCalls(t *testing.T) {
	var r *Response
	assert.False(t, r.HasToolCalls())
	assert.False(t, (&Response{Text: "hi"}).HasToolCalls())
}
