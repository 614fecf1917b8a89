package plan

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"funcagent/internal/domain"
	"funcagent/internal/tool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// namedTool is a no-op tool identified only by its name.
type namedTool struct{ name string }

func (n namedTool) Name() string                 { return n.name }
func (n namedTool) Description() string          { return "tool " + n.name }
func (n namedTool) ParameterDescription() string { return "none" }
func (n namedTool) Terminal() bool               { return false }
func (n namedTool) Execute(context.Context, domain.Args) domain.ToolOutcome {
	return domain.OK(n.name + " ran")
}

func TestToolFilter_NilFilter(t *testing.T) {
	var tf *ToolFilter
	if !tf.IsAllowed("calculator") {
		t.Error("nil filter should allow everything")
	}
	if !tf.IsEmpty() {
		t.Error("nil filter should be empty")
	}
}

func TestToolFilter_EmptyFilter(t *testing.T) {
	tf := NewToolFilter(nil, nil)
	if !tf.IsAllowed("calculator") {
		t.Error("empty filter should allow everything")
	}
	if !tf.IsEmpty() {
		t.Error("empty filter should be empty")
	}
}

func TestToolFilter_AllowList(t *testing.T) {
	tf := NewToolFilter([]string{"calculator", "search"}, nil)

	if !tf.IsAllowed("calculator") {
		t.Error("calculator should be allowed")
	}
	if !tf.IsAllowed("search") {
		t.Error("search should be allowed")
	}
	if tf.IsAllowed("fetch") {
		t.Error("fetch should NOT be allowed")
	}
}

func TestToolFilter_DenyList(t *testing.T) {
	tf := NewToolFilter(nil, []string{"fetch"})

	if tf.IsAllowed("fetch") {
		t.Error("fetch should be denied")
	}
	if !tf.IsAllowed("search") {
		t.Error("search should be allowed")
	}
	if tf.IsEmpty() {
		t.Error("filter with rules should not be empty")
	}
}

func TestToolFilter_DenyOverridesAllow(t *testing.T) {
	tf := NewToolFilter([]string{"fetch", "search"}, []string{"fetch"})

	if tf.IsAllowed("fetch") {
		t.Error("fetch should be denied (deny overrides allow)")
	}
	if !tf.IsAllowed("search") {
		t.Error("search should be allowed")
	}
}

func globalRegistry() *tool.Registry {
	return tool.NewRegistry(testLogger(),
		namedTool{"calculator"},
		namedTool{"search"},
		namedTool{"fetch"},
		tool.NewTerminateTool(),
	)
}

func TestEffectiveTools_ForceIncludesTerminate(t *testing.T) {
	got := EffectiveTools(globalRegistry(), []string{"calculator"}, nil)
	want := []string{"calculator", "terminate"}
	if !reflect.DeepEqual(got.Names(), want) {
		t.Fatalf("expected %v, got %v", want, got.Names())
	}
}

func TestEffectiveTools_EmptyAllowList(t *testing.T) {
	got := EffectiveTools(globalRegistry(), nil, nil)
	if !reflect.DeepEqual(got.Names(), []string{"terminate"}) {
		t.Fatalf("empty allow list should leave only terminate, got %v", got.Names())
	}
}

func TestEffectiveTools_SkipsUnknown(t *testing.T) {
	got := EffectiveTools(globalRegistry(), []string{"search", "teleport"}, nil)
	if got.Has("teleport") {
		t.Fatal("unknown tool should not appear")
	}
	if !got.Has("search") {
		t.Fatal("search should be present")
	}
}

func TestEffectiveTools_AppliesDenyList(t *testing.T) {
	got := EffectiveTools(globalRegistry(), []string{"search", "fetch"}, []string{"fetch"})
	if got.Has("fetch") {
		t.Fatal("denied tool should be removed")
	}
	if !got.Has("search") {
		t.Fatal("search should be present")
	}
}

func TestEffectiveTools_TerminateSurvivesDeny(t *testing.T) {
	got := EffectiveTools(globalRegistry(), []string{"terminate"}, []string{"terminate"})
	if !got.Has(tool.TerminateName) {
		t.Fatal("terminate must always be available")
	}
}

func TestEffectiveTools_GlobalWithoutTerminate(t *testing.T) {
	global := tool.NewRegistry(testLogger(), namedTool{"search"})
	got := EffectiveTools(global, []string{"search"}, nil)
	if !got.Has(tool.TerminateName) {
		t.Fatal("terminate should be supplied even when the registry lacks it")
	}
	if global.Has(tool.TerminateName) {
		t.Fatal("global registry must not be modified")
	}
}
