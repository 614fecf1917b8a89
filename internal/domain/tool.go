package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool is a named capability the agent can invoke.
type Tool interface {
	Name() string
	Description() string
	// ParameterDescription is a human-readable description of the accepted
	// arguments, embedded verbatim in the prompt's tool catalogue.
	ParameterDescription() string
	// Terminal reports whether the tool is intrinsically a termination tool.
	// It is bookkeeping only; loop flow is driven by the returned ToolOutcome.
	Terminal() bool
	Execute(ctx context.Context, args Args) ToolOutcome
}

// Args holds invocation arguments. Every value is text; the step interpreter
// coerces non-string JSON values before they reach a tool.
type Args map[string]string

// Get returns the trimmed value for key, or "" when absent.
func (a Args) Get(key string) string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a[key])
}

// Require returns the value for key or an error naming the missing argument.
func (a Args) Require(key string) (string, error) {
	v := a.Get(key)
	if v == "" {
		return "", fmt.Errorf("missing argument: %s", key)
	}
	return v, nil
}

// Keys returns argument names in sorted order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders args as {k1=v1, k2=v2} with sorted keys.
func (a Args) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range a.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(a[k])
	}
	b.WriteByte('}')
	return b.String()
}

// ToolInvocation is a request to run a tool. Treat it as immutable.
type ToolInvocation struct {
	Name      string
	Arguments Args
}

func (inv ToolInvocation) String() string {
	return fmt.Sprintf("%s(%s)", inv.Name, inv.Arguments)
}

type OutcomeKind string

const (
	OutcomeOK       OutcomeKind = "ok"
	OutcomeFailed   OutcomeKind = "failed"
	OutcomeTerminal OutcomeKind = "terminal"
)

// ToolOutcome is the tri-state result of executing a ToolInvocation.
type ToolOutcome struct {
	Kind   OutcomeKind
	Output string
}

func OK(output string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeOK, Output: output}
}

// Failed builds a failed outcome. The message is prefixed with "Error: " so the
// model sees failures distinctly in its history.
func Failed(message string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeFailed, Output: "Error: " + message}
}

func Terminal(finalAnswer string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeTerminal, Output: finalAnswer}
}

func (o ToolOutcome) IsTerminal() bool { return o.Kind == OutcomeTerminal }
func (o ToolOutcome) IsFailed() bool   { return o.Kind == OutcomeFailed }
