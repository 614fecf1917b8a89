package tool

import (
	"log/slog"
	"time"

	"funcagent/internal/domain"
)

// BuiltinConfig selects which built-in tools are registered.
type BuiltinConfig struct {
	Fetch        bool
	FetchTimeout time.Duration
}

// Builtins returns a registry with the calculator, search and terminate tools,
// plus fetch when enabled.
func Builtins(cfg BuiltinConfig, logger *slog.Logger) *Registry {
	tools := []domain.Tool{
		NewCalculatorTool(),
		NewSearchTool(),
	}
	if cfg.Fetch {
		tools = append(tools, NewFetchTool(cfg.FetchTimeout))
	}
	tools = append(tools, NewTerminateTool())
	return NewRegistry(logger, tools...)
}
