package plan

import (
	"funcagent/internal/tool"
)

// ToolFilter applies allow/deny rules to tool names.
type ToolFilter struct {
	allowedTools map[string]bool // if non-empty, only these tools are allowed
	deniedTools  map[string]bool // these tools are always denied
}

// NewToolFilter creates a tool filter from allow/deny lists.
// If allowed is non-empty, only those tools are permitted.
// Denied tools are always blocked regardless of the allow list.
func NewToolFilter(allowed, denied []string) *ToolFilter {
	tf := &ToolFilter{
		allowedTools: make(map[string]bool),
		deniedTools:  make(map[string]bool),
	}
	for _, t := range allowed {
		tf.allowedTools[t] = true
	}
	for _, t := range denied {
		tf.deniedTools[t] = true
	}
	return tf
}

// IsAllowed returns true if the tool name passes the filter.
func (tf *ToolFilter) IsAllowed(name string) bool {
	if tf == nil {
		return true
	}
	// Deny list always wins.
	if tf.deniedTools[name] {
		return false
	}
	if len(tf.allowedTools) > 0 {
		return tf.allowedTools[name]
	}
	return true
}

// IsEmpty returns true if the filter has no rules.
func (tf *ToolFilter) IsEmpty() bool {
	return tf == nil || (len(tf.allowedTools) == 0 && len(tf.deniedTools) == 0)
}

// EffectiveTools returns the toolset a plan step runs with: the allowed names
// that exist in global and are not denied, plus the terminate tool, which is
// always present so every step has a way to finish.
func EffectiveTools(global *tool.Registry, allowed, denied []string) *tool.Registry {
	filter := NewToolFilter(allowed, denied)
	names := make([]string, 0, len(allowed)+1)
	for _, name := range allowed {
		if filter.IsAllowed(name) {
			names = append(names, name)
		}
	}

	sub := global.Subset(names...)
	if sub.Has(tool.TerminateName) {
		return sub
	}
	term, ok := global.Resolve(tool.TerminateName)
	if !ok {
		term = tool.NewTerminateTool()
	}
	return sub.With(term)
}
