package tool

import (
	"context"

	"funcagent/internal/domain"
)

// TerminateName is the name of the mandatory termination tool.
const TerminateName = "terminate"

const defaultFinalAnswer = "task completed"

// TerminateTool ends the agent loop with a final answer.
type TerminateTool struct{}

func NewTerminateTool() *TerminateTool { return &TerminateTool{} }

func (t *TerminateTool) Name() string { return TerminateName }
func (t *TerminateTool) Description() string {
	return "Call this tool when the task is complete to submit the final answer."
}
func (t *TerminateTool) ParameterDescription() string {
	return "answer (string): the final answer or result of the task"
}
func (t *TerminateTool) Terminal() bool { return true }

func (t *TerminateTool) Execute(_ context.Context, args domain.Args) domain.ToolOutcome {
	for _, key := range []string{"answer", "result", "final_answer"} {
		if v := args.Get(key); v != "" {
			return domain.Terminal(v)
		}
	}
	// Models sometimes invent their own argument name; accept a lone argument.
	if len(args) == 1 {
		for _, v := range args {
			if v != "" {
				return domain.Terminal(v)
			}
		}
	}
	return domain.Terminal(defaultFinalAnswer)
}
