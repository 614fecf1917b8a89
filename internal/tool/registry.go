package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"funcagent/internal/domain"
)

var ErrToolNotFound = errors.New("tool not found")

// Registry maps tool names to tools. It is immutable once built: Subset and
// With return new registries, so a registry can be shared by value between
// loops without locking.
type Registry struct {
	tools  map[string]domain.Tool
	order  []string // registration order, used for the prompt catalogue
	logger *slog.Logger
}

// NewRegistry builds a registry from tools. A later tool with a duplicate name
// replaces the earlier one.
func NewRegistry(logger *slog.Logger, tools ...domain.Tool) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:  make(map[string]domain.Tool, len(tools)),
		logger: logger,
	}
	for _, t := range tools {
		r.add(t)
	}
	return r
}

func (r *Registry) add(t domain.Tool) {
	if t == nil {
		return
	}
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		r.logger.Warn("duplicate tool name, replacing", "name", name)
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	r.logger.Debug("registered tool", "name", name, "terminal", t.Terminal())
}

// Resolve looks a tool up by name.
func (r *Registry) Resolve(name string) (domain.Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// Invoke runs the named tool. It never returns an error: unknown tools and
// panicking tools both surface as failed outcomes.
func (r *Registry) Invoke(ctx context.Context, inv domain.ToolInvocation) (out domain.ToolOutcome) {
	t, ok := r.Resolve(inv.Name)
	if !ok {
		return domain.Failed(fmt.Errorf("%w: %s", ErrToolNotFound, inv.Name).Error())
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", inv.Name, "panic", rec)
			out = domain.Failed(fmt.Sprintf("tool %s crashed: %v", inv.Name, rec))
		}
	}()

	args := inv.Arguments
	if args == nil {
		args = domain.Args{}
	}
	return t.Execute(ctx, args)
}

// Subset returns a registry holding only the named tools that exist here, in
// the order given. Unknown names are skipped.
func (r *Registry) Subset(names ...string) *Registry {
	if r == nil {
		return NewRegistry(nil)
	}
	sub := &Registry{tools: make(map[string]domain.Tool, len(names)), logger: r.logger}
	for _, name := range names {
		if t, ok := r.Resolve(name); ok {
			if _, dup := sub.tools[name]; !dup {
				sub.order = append(sub.order, name)
				sub.tools[name] = t
			}
		}
	}
	return sub
}

// With returns a copy of the registry extended with tools.
func (r *Registry) With(tools ...domain.Tool) *Registry {
	if r == nil {
		return NewRegistry(nil, tools...)
	}
	cp := &Registry{
		tools:  make(map[string]domain.Tool, len(r.tools)+len(tools)),
		order:  append([]string(nil), r.order...),
		logger: r.logger,
	}
	for k, v := range r.tools {
		cp.tools[k] = v
	}
	for _, t := range tools {
		cp.add(t)
	}
	return cp
}

// Tools returns tools in registration order.
func (r *Registry) Tools() []domain.Tool {
	if r == nil {
		return nil
	}
	out := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Catalogue renders the tool list shown to the model.
func (r *Registry) Catalogue() string {
	var b strings.Builder
	for _, t := range r.Tools() {
		fmt.Fprintf(&b, "- %s: %s\n  Parameters: %s\n", t.Name(), t.Description(), t.ParameterDescription())
	}
	return b.String()
}
