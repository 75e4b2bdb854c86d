package prompts

import (
	"fmt"
	"strings"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// PromptBuilder constructs the system prompt.
type PromptBuilder struct {
	tools              []types.ToolSchema
	customInstructions string
}

// NewPromptBuilder creates a new prompt builder with default settings
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// WithTools lists the available tools in the prompt.
func (pb *PromptBuilder) WithTools(schemas []types.ToolSchema) *PromptBuilder {
	pb.tools = schemas
	return pb
}

// WithCustomInstructions adds custom user-provided instructions
func (pb *PromptBuilder) WithCustomInstructions(instructions string) *PromptBuilder {
	pb.customInstructions = instructions
	return pb
}

// Build constructs the complete system prompt by assembling all sections
func (pb *PromptBuilder) Build() string {
	var b strings.Builder

	if pb.customInstructions != "" {
		b.WriteString("<custom_instructions>\n")
		b.WriteString(pb.customInstructions)
		b.WriteString("\n</custom_instructions>\n\n")
	}

	for _, section := range []string{RolePrompt, AgentLoopPrompt, ElementRulesPrompt, CompletionRulesPrompt, SafetyRulesPrompt, LoopRulesPrompt} {
		b.WriteString(section)
		b.WriteString("\n\n")
	}

	if len(pb.tools) > 0 {
		b.WriteString("<available_tools>\n")
		for _, t := range pb.tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
		b.WriteString("</available_tools>")
	}

	return strings.TrimRight(b.String(), "\n")
}

// DefaultSystemPrompt is the system prompt with no custom instructions.
func DefaultSystemPrompt(schemas []types.ToolSchema) string {
	return NewPromptBuilder().WithTools(schemas).Build()
}
