package agent

import (
	"strings"

	"funcagent/internal/domain"
	"funcagent/internal/tool"
)

// DefaultSystemPrompt is used for ad-hoc runs that do not supply their own.
const DefaultSystemPrompt = `You are a helpful AI assistant. You can use tools to answer questions.
Think step by step and use the appropriate tool to work on the user's request.
When you have the final answer, use the 'terminate' tool to submit it.`

// responseFormat is the output contract the step interpreter understands.
const responseFormat = `Response format:
You must respond with a JSON object.

When using a tool:
{
  "reasoning": "your step-by-step thinking about what to do next",
  "tool": "tool name",
  "arguments": {"param1": "value1", "param2": "value2"}
}

Important:
- When the task is complete you MUST use the 'terminate' tool
- Give clear reasoning before every tool call
- Output only valid JSON, no other text
`

const (
	nudgeMessage       = "Please continue by using a tool. If the task is complete, use the 'terminate' tool."
	errorMessageFormat = "An error occurred: %s. Please try a different approach."
	observationFormat  = "I will use the %s tool.\nTool call: %s\nResult: %s"
)

// PromptBuilder assembles the full text prompt for one reasoning turn.
type PromptBuilder struct {
	systemPrompt string
	catalogue    string
}

// NewPromptBuilder captures the system prompt and the catalogue of tools. The
// catalogue is rendered once since a loop's toolset never changes.
func NewPromptBuilder(systemPrompt string, tools *tool.Registry) *PromptBuilder {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &PromptBuilder{
		systemPrompt: systemPrompt,
		catalogue:    tools.Catalogue(),
	}
}

// Build renders system instructions, the tool catalogue, the response format
// and the conversation so far, ending with an open assistant turn.
func (p *PromptBuilder) Build(history []domain.Message) string {
	var sb strings.Builder

	sb.WriteString("System instructions:\n")
	sb.WriteString(p.systemPrompt)
	sb.WriteString("\n\n")

	sb.WriteString("Available tools:\n")
	sb.WriteString(p.catalogue)
	sb.WriteString("\n")

	sb.WriteString(responseFormat)
	sb.WriteString("\n")

	sb.WriteString("Conversation history:\n")
	for _, m := range history {
		sb.WriteString(strings.ToUpper(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("ASSISTANT: ")
	return sb.String()
}
