package types

// AgentEventType defines the type of event emitted by the agent.
type AgentEventType string

const (
	EventTypeTaskStart            AgentEventType = "task_start"            // EventTypeTaskStart indicates a task run has started.
	EventTypeTaskStatus           AgentEventType = "task_status"           // EventTypeTaskStatus indicates the task changed status.
	EventTypeTaskEnd              AgentEventType = "task_end"              // EventTypeTaskEnd indicates a task run reached a terminal status.
	EventTypeIterationStart       AgentEventType = "iteration_start"       // EventTypeIterationStart indicates a new loop iteration.
	EventTypeThinkingContent      AgentEventType = "thinking_content"      // EventTypeThinkingContent carries free text the model produced alongside its tool calls.
	EventTypeToolCall             AgentEventType = "tool_call"             // EventTypeToolCall indicates the agent is calling a tool.
	EventTypeToolResult           AgentEventType = "tool_result"           // EventTypeToolResult indicates a successful tool call result.
	EventTypeToolResultError      AgentEventType = "tool_result_error"     // EventTypeToolResultError indicates a tool call resulted in an error.
	EventTypeNoToolCall           AgentEventType = "no_tool_call"          // EventTypeNoToolCall indicates the model replied without calling a tool.
	EventTypeLoopDetected         AgentEventType = "loop_detected"         // EventTypeLoopDetected indicates the loop detector tripped.
	EventTypeRiskDecision         AgentEventType = "risk_decision"         // EventTypeRiskDecision reports the risk gate outcome for an action that needed consent.
	EventTypeAPICallStart         AgentEventType = "api_call_start"        // EventTypeAPICallStart indicates the agent is calling the model backend.
	EventTypeAPICallEnd           AgentEventType = "api_call_end"          // EventTypeAPICallEnd indicates a backend call has completed.
	EventTypeTokenUsage           AgentEventType = "token_usage"           // EventTypeTokenUsage carries token usage and cost for a backend call.
	EventTypeCostWarning          AgentEventType = "cost_warning"          // EventTypeCostWarning indicates the cost warning threshold was crossed.
	EventTypeConfirmationRequest  AgentEventType = "confirmation_request"  // EventTypeConfirmationRequest asks the user to confirm a risky action.
	EventTypeConfirmationTimeout  AgentEventType = "confirmation_timeout"  // EventTypeConfirmationTimeout indicates a confirmation request timed out.
	EventTypeConfirmationGranted  AgentEventType = "confirmation_granted"  // EventTypeConfirmationGranted indicates the user approved the action.
	EventTypeConfirmationRejected AgentEventType = "confirmation_rejected" // EventTypeConfirmationRejected indicates the user rejected the action.
	EventTypeQuestionRequest      AgentEventType = "question_request"      // EventTypeQuestionRequest asks the user a question on behalf of the model.
	EventTypeQuestionAnswered     AgentEventType = "question_answered"     // EventTypeQuestionAnswered indicates the user answered a question.
	EventTypeError                AgentEventType = "error"                 // EventTypeError indicates an error occurred during agent processing.
)

// AgentEvent represents an event emitted by the agent during execution.
type AgentEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// ToolInput is the input being sent to the tool (for tool call events).
	ToolInput map[string]interface{}

	// ToolOutput is the result from the tool (for tool result events).
	ToolOutput interface{}

	// Error contains error information for error events.
	Error error

	// Content holds text content (model text, confirmation descriptions, questions).
	Content string

	// ToolName is the name of the tool being called (for tool events).
	ToolName string

	// Type indicates the kind of event.
	Type AgentEventType

	// TaskID identifies the task the event belongs to.
	TaskID string

	// Status is the task status for task events.
	Status string

	// RequestID is a unique identifier for confirmation and question requests.
	RequestID string

	// Reason explains why a confirmation is being requested.
	Reason string

	// Options lists suggested answers for question requests.
	Options []string

	// TokenUsage contains token usage information (for token usage events).
	TokenUsage *TokenUsage
}

// TokenUsage contains token usage statistics from a backend call.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input/prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens in the generated completion/response.
	CompletionTokens int

	// TotalTokens is the total number of tokens used (prompt + completion).
	TotalTokens int

	// CostUSD is the cost of this call in US dollars.
	CostUSD float64

	// TotalCostUSD is the accumulated cost of the current task.
	TotalCostUSD float64
}

func newEvent(t AgentEventType) *AgentEvent {
	return &AgentEvent{
		Type:     t,
		Metadata: make(map[string]interface{}),
	}
}

// NewTaskStartEvent creates a task start event.
func NewTaskStartEvent(taskID, description string) *AgentEvent {
	e := newEvent(EventTypeTaskStart)
	e.TaskID = taskID
	e.Content = description
	return e
}

// NewTaskStatusEvent creates a task status change event.
func NewTaskStatusEvent(taskID, status string) *AgentEvent {
	e := newEvent(EventTypeTaskStatus)
	e.TaskID = taskID
	e.Status = status
	return e
}

// NewTaskEndEvent creates a task end event carrying the final summary.
func NewTaskEndEvent(taskID, status, summary string) *AgentEvent {
	e := newEvent(EventTypeTaskEnd)
	e.TaskID = taskID
	e.Status = status
	e.Content = summary
	return e
}

// NewIterationStartEvent creates an iteration start event.
func NewIterationStartEvent(iteration, maxIterations int) *AgentEvent {
	e := newEvent(EventTypeIterationStart)
	e.Metadata["iteration"] = iteration
	e.Metadata["max_iterations"] = maxIterations
	return e
}

// NewThinkingContentEvent creates a thinking content event.
func NewThinkingContentEvent(content string) *AgentEvent {
	e := newEvent(EventTypeThinkingContent)
	e.Content = content
	return e
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(toolName string, toolInput map[string]interface{}) *AgentEvent {
	e := newEvent(EventTypeToolCall)
	e.ToolName = toolName
	e.ToolInput = toolInput
	return e
}

// NewToolResultEvent creates a tool result event.
func NewToolResultEvent(toolName string, output interface{}) *AgentEvent {
	e := newEvent(EventTypeToolResult)
	e.ToolName = toolName
	e.ToolOutput = output
	return e
}

// NewToolResultErrorEvent creates a tool result error event.
func NewToolResultErrorEvent(toolName string, err error) *AgentEvent {
	e := newEvent(EventTypeToolResultError)
	e.ToolName = toolName
	e.Error = err
	return e
}

// NewNoToolCallEvent creates a no tool call event.
func NewNoToolCallEvent(content string) *AgentEvent {
	e := newEvent(EventTypeNoToolCall)
	e.Content = content
	return e
}

// NewLoopDetectedEvent creates a loop detected event.
func NewLoopDetectedEvent(toolName, diagnostic string) *AgentEvent {
	e := newEvent(EventTypeLoopDetected)
	e.ToolName = toolName
	e.Content = diagnostic
	return e
}

// NewRiskDecisionEvent creates a risk decision event.
func NewRiskDecisionEvent(toolName, level, reason string, allowed bool) *AgentEvent {
	e := newEvent(EventTypeRiskDecision)
	e.ToolName = toolName
	e.Reason = reason
	e.Metadata["level"] = level
	e.Metadata["allowed"] = allowed
	return e
}

// NewAPICallStartEvent creates an API call start event.
func NewAPICallStartEvent(provider string, messages int) *AgentEvent {
	e := newEvent(EventTypeAPICallStart)
	e.Metadata["provider"] = provider
	e.Metadata["messages"] = messages
	return e
}

// NewAPICallEndEvent creates an API call end event.
func NewAPICallEndEvent(provider string) *AgentEvent {
	e := newEvent(EventTypeAPICallEnd)
	e.Metadata["provider"] = provider
	return e
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(promptTokens, completionTokens int, cost, totalCost float64) *AgentEvent {
	e := newEvent(EventTypeTokenUsage)
	e.TokenUsage = &TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		CostUSD:          cost,
		TotalCostUSD:     totalCost,
	}
	return e
}

// NewCostWarningEvent creates a cost warning event.
func NewCostWarningEvent(totalCost, threshold float64) *AgentEvent {
	e := newEvent(EventTypeCostWarning)
	e.Metadata["total_cost_usd"] = totalCost
	e.Metadata["threshold_usd"] = threshold
	return e
}

// NewConfirmationRequestEvent creates a confirmation request event.
func NewConfirmationRequestEvent(requestID, description, reason string) *AgentEvent {
	e := newEvent(EventTypeConfirmationRequest)
	e.RequestID = requestID
	e.Content = description
	e.Reason = reason
	return e
}

// NewConfirmationTimeoutEvent creates a confirmation timeout event.
func NewConfirmationTimeoutEvent(requestID string) *AgentEvent {
	e := newEvent(EventTypeConfirmationTimeout)
	e.RequestID = requestID
	return e
}

// NewConfirmationGrantedEvent creates a confirmation granted event.
func NewConfirmationGrantedEvent(requestID string) *AgentEvent {
	e := newEvent(EventTypeConfirmationGranted)
	e.RequestID = requestID
	return e
}

// NewConfirmationRejectedEvent creates a confirmation rejected event.
func NewConfirmationRejectedEvent(requestID string) *AgentEvent {
	e := newEvent(EventTypeConfirmationRejected)
	e.RequestID = requestID
	return e
}

// NewQuestionRequestEvent creates a question request event.
func NewQuestionRequestEvent(requestID, question string, options []string) *AgentEvent {
	e := newEvent(EventTypeQuestionRequest)
	e.RequestID = requestID
	e.Content = question
	e.Options = options
	return e
}

// NewQuestionAnsweredEvent creates a question answered event.
func NewQuestionAnsweredEvent(requestID, answer string) *AgentEvent {
	e := newEvent(EventTypeQuestionAnswered)
	e.RequestID = requestID
	e.Content = answer
	return e
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	e := newEvent(EventTypeError)
	e.Error = err
	return e
}

// IsConfirmationEvent returns true if this is any type of confirmation event.
func (e *AgentEvent) IsConfirmationEvent() bool {
	switch e.Type {
	case EventTypeConfirmationRequest, EventTypeConfirmationTimeout,
		EventTypeConfirmationGranted, EventTypeConfirmationRejected:
		return true
	}
	return false
}

// IsToolEvent returns true if this is any type of tool event.
func (e *AgentEvent) IsToolEvent() bool {
	return e.Type == EventTypeToolCall || e.Type == EventTypeToolResult || e.Type == EventTypeToolResultError
}

// IsTerminal returns true if the event marks the end of a task run.
func (e *AgentEvent) IsTerminal() bool {
	return e.Type == EventTypeTaskEnd
}

// WithMetadata adds metadata to the event and returns the event for chaining.
func (e *AgentEvent) WithMetadata(key string, value interface{}) *AgentEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}
