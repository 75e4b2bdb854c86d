package types

import (
	"errors"
	"testing"
)

func TestNewTaskEvents(t *testing.T) {
	start := NewTaskStartEvent("task-1", "find the weather")
	if start.Type != EventTypeTaskStart {
		t.Errorf("TaskStart type = %v, want %v", start.Type, EventTypeTaskStart)
	}
	if start.TaskID != "task-1" || start.Content != "find the weather" {
		t.Errorf("TaskStart fields not set: %+v", start)
	}

	end := NewTaskEndEvent("task-1", "completed", "done")
	if !end.IsTerminal() {
		t.Error("TaskEnd should be terminal")
	}
	if end.Status != "completed" {
		t.Errorf("Status = %q, want %q", end.Status, "completed")
	}
	if start.IsTerminal() {
		t.Error("TaskStart should not be terminal")
	}
}

func TestNewTokenUsageEvent(t *testing.T) {
	event := NewTokenUsageEvent(1000, 200, 0.006, 0.012)
	if event.TokenUsage == nil {
		t.Fatal("TokenUsage not set")
	}
	if event.TokenUsage.TotalTokens != 1200 {
		t.Errorf("TotalTokens = %d, want 1200", event.TokenUsage.TotalTokens)
	}
	if event.TokenUsage.TotalCostUSD != 0.012 {
		t.Errorf("TotalCostUSD = %v, want 0.012", event.TokenUsage.TotalCostUSD)
	}
}

func TestConfirmationEvents(t *testing.T) {
	tests := []struct {
		event *AgentEvent
		name  string
		want  AgentEventType
	}{
		{name: "request", event: NewConfirmationRequestEvent("req-1", "click Delete", "delete action"), want: EventTypeConfirmationRequest},
		{name: "timeout", event: NewConfirmationTimeoutEvent("req-1"), want: EventTypeConfirmationTimeout},
		{name: "granted", event: NewConfirmationGrantedEvent("req-1"), want: EventTypeConfirmationGranted},
		{name: "rejected", event: NewConfirmationRejectedEvent("req-1"), want: EventTypeConfirmationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.event.Type != tt.want {
				t.Errorf("type = %v, want %v", tt.event.Type, tt.want)
			}
			if tt.event.RequestID != "req-1" {
				t.Errorf("RequestID = %q, want req-1", tt.event.RequestID)
			}
			if !tt.event.IsConfirmationEvent() {
				t.Error("IsConfirmationEvent() = false, want true")
			}
			if tt.event.IsToolEvent() {
				t.Error("IsToolEvent() = true, want false")
			}
		})
	}
}

func TestToolEvents(t *testing.T) {
	call := NewToolCallEvent("click", map[string]interface{}{"element_index": 3})
	if !call.IsToolEvent() {
		t.Error("tool call should be a tool event")
	}

	errEvent := NewToolResultErrorEvent("click", errors.New("element not found"))
	if !errEvent.IsToolEvent() {
		t.Error("tool result error should be a tool event")
	}
	if errEvent.Error == nil {
		t.Error("error not set")
	}
}

func TestAgentEventWithMetadata(t *testing.T) {
	event := NewThinkingContentEvent("test")
	result := event.WithMetadata("key", "value")

	if result != event {
		t.Error("WithMetadata should return the same event for chaining")
	}
	if event.Metadata["key"] != "value" {
		t.Errorf("WithMetadata did not set metadata, got %v", event.Metadata["key"])
	}

	empty := &AgentEvent{}
	empty.WithMetadata("k", 1)
	if empty.Metadata["k"] != 1 {
		t.Error("WithMetadata should initialize nil metadata")
	}
}
