package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"funcagent/internal/domain"
	"funcagent/internal/metrics"
	"funcagent/internal/tool"
)

const (
	defaultMaxSteps     = 10
	defaultLLMMaxTokens = 4096
	defaultTemperature  = 0.7

	// NoResult is reported when a run ends without any successful observation.
	NoResult = "max steps reached, task not completed"
)

// Loop is the think → act → observe engine. One Loop owns one conversation at
// a time; Run resets it, so a Loop must not be shared between goroutines.
type Loop struct {
	provider    domain.Provider
	tools       *tool.Registry
	prompt      *PromptBuilder
	limiter     *RateLimiter
	logger      *slog.Logger
	maxSteps    int
	model       string
	maxTokens   int
	temperature float64

	history []domain.Message
	state   domain.State
	usage   domain.Usage
}

// LoopConfig holds all dependencies and tuning parameters for the agent loop.
type LoopConfig struct {
	Provider     domain.Provider
	Tools        *tool.Registry
	SystemPrompt string
	MaxSteps     int
	Model        string // optional: provider default when empty
	MaxTokens    int
	Temperature  *float64 // nil selects defaultTemperature
	Limiter      *RateLimiter // optional
	Logger       *slog.Logger
}

// NewLoop creates a new agent loop with the given configuration.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultLLMMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry(cfg.Logger)
	}
	return &Loop{
		provider:    cfg.Provider,
		tools:       cfg.Tools,
		prompt:      NewPromptBuilder(cfg.SystemPrompt, cfg.Tools),
		limiter:     cfg.Limiter,
		logger:      cfg.Logger,
		maxSteps:    cfg.MaxSteps,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: temperatureOrDefault(cfg.Temperature),
		state:       domain.StateIdle,
	}
}

// Run drives one bounded think–act–observe cycle for request. It always
// returns an outcome; every fault inside an iteration is fed back to the model
// and costs one step of the budget.
func (l *Loop) Run(ctx context.Context, request string) domain.LoopOutcome {
	l.history = []domain.Message{{Role: domain.RoleUser, Content: request}}
	l.usage = domain.Usage{}
	l.state = domain.StateRunning

	l.logger.Info("agent run started",
		"max_steps", l.maxSteps,
		"tools", l.tools.Names(),
		"request", truncate(request, 200),
	)

	var lastResult string
	step := 0
	for step < l.maxSteps {
		if err := ctx.Err(); err != nil {
			l.logger.Warn("agent run cancelled", "step", step, "error", err)
			if lastResult == "" {
				lastResult = "cancelled: " + err.Error()
			}
			return l.finish(domain.StateFailed, lastResult, step)
		}

		step++
		metrics.IterationsTotal.Inc()
		l.logger.Info("agent step", "step", step, "max_steps", l.maxSteps)

		out, err := l.iterate(ctx)
		if err != nil {
			l.logger.Error("agent step failed", "step", step, "error", err)
			l.append(domain.RoleUser, fmt.Sprintf(errorMessageFormat, err))
			continue
		}
		if out == nil {
			continue
		}
		if !out.IsFailed() {
			lastResult = out.Output
		}
		if out.IsTerminal() {
			l.logger.Info("agent run completed", "steps", step)
			return l.finish(domain.StateCompleted, out.Output, step)
		}
	}

	l.logger.Warn("agent reached max steps", "steps", step)
	if lastResult == "" {
		lastResult = NoResult
	}
	return l.finish(domain.StateMaxStepsReached, lastResult, step)
}

// History returns a copy of the conversation of the current or last run.
func (l *Loop) History() []domain.Message {
	return append([]domain.Message(nil), l.history...)
}

// State returns the loop's lifecycle state.
func (l *Loop) State() domain.State { return l.state }

// iterate performs one think → act → observe pass. It returns the tool
// outcome when a tool ran, nil when the iteration ended without one.
func (l *Loop) iterate(ctx context.Context) (out *domain.ToolOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unexpected panic: %v", rec)
		}
	}()

	decision, ok, err := l.think(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.logger.Warn("model returned no content, retrying")
		return nil, nil
	}
	if decision.Degraded {
		l.logger.Warn("could not decode structured reply, treating it as reasoning")
	}
	l.logger.Info("agent thinking", "reasoning", truncate(decision.Reasoning, 200))

	if !decision.HasInvocation() {
		l.logger.Warn("no tool invocation in reply, prompting for one")
		l.append(domain.RoleAssistant, decision.Reasoning)
		l.append(domain.RoleUser, nudgeMessage)
		return nil, nil
	}

	inv := l.resolveName(*decision.Invocation)
	outcome := l.act(ctx, inv)
	l.append(domain.RoleAssistant, fmt.Sprintf(observationFormat, inv.Name, inv, outcome.Output))
	return &outcome, nil
}

// think asks the model for the next step. ok is false when the reply was empty.
func (l *Loop) think(ctx context.Context) (Decision, bool, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Decision{}, false, fmt.Errorf("rate limit: %w", err)
	}

	prompt := l.prompt.Build(l.history)
	start := time.Now()
	metrics.LLMRequestsTotal.Inc()
	resp, err := l.provider.Chat(ctx, domain.ChatRequest{
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: prompt}},
		Model:       l.model,
		MaxTokens:   l.maxTokens,
		Temperature: &l.temperature,
	})
	metrics.LLMLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMErrorsTotal.Inc()
		return Decision{}, false, fmt.Errorf("model gateway: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		metrics.LLMErrorsTotal.Inc()
		return Decision{}, false, nil
	}

	l.usage = l.usage.Add(resp.Usage)
	metrics.TokensIn.Add(int64(resp.Usage.PromptTokens))
	metrics.TokensOut.Add(int64(resp.Usage.CompletionTokens))
	l.logger.Debug("model response",
		"content", truncate(resp.Content, 100),
		"tokens_in", resp.Usage.PromptTokens,
		"tokens_out", resp.Usage.CompletionTokens,
	)
	return Interpret(resp.Content), true, nil
}

// act runs the invocation against this loop's toolset.
func (l *Loop) act(ctx context.Context, inv domain.ToolInvocation) domain.ToolOutcome {
	if l.logger.Enabled(ctx, slog.LevelDebug) {
		l.logger.Debug("tool arguments", "tool", inv.Name, "args", inv.Arguments.String())
	}

	start := time.Now()
	metrics.ToolExecutions.Inc()
	out := l.tools.Invoke(ctx, inv)
	metrics.ToolLatency.Observe(time.Since(start).Seconds())

	if out.IsFailed() {
		metrics.ToolFailures.Inc()
		l.logger.Warn("tool failed", "tool", inv.Name, "output", truncate(out.Output, 200))
	} else {
		l.logger.Info("tool executed", "tool", inv.Name, "outcome", out.Kind, "result", truncate(out.Output, 200))
	}
	return out
}

// resolveName maps common model-generated variations of a tool name onto a
// registered one. Exact names always win.
func (l *Loop) resolveName(inv domain.ToolInvocation) domain.ToolInvocation {
	if l.tools.Has(inv.Name) {
		return inv
	}
	if mapped := normalizeToolName(inv.Name); mapped != inv.Name && l.tools.Has(mapped) {
		l.logger.Debug("normalized tool name", "from", inv.Name, "to", mapped)
		return domain.ToolInvocation{Name: mapped, Arguments: inv.Arguments}
	}
	return inv
}

func (l *Loop) append(role, content string) {
	l.history = append(l.history, domain.Message{Role: role, Content: content})
}

func (l *Loop) finish(state domain.State, result string, steps int) domain.LoopOutcome {
	l.state = state
	metrics.LoopOutcome(string(state)).Inc()
	return domain.LoopOutcome{
		State:  state,
		Result: result,
		Steps:  steps,
		Usage:  l.usage,
	}
}

// normalizeToolName lower-cases name and maps frequent aliases to the
// built-in tool names.
func normalizeToolName(name string) string {
	aliases := map[string]string{
		"calc":         "calculator",
		"math":         "calculator",
		"web_search":   "search",
		"websearch":    "search",
		"web-search":   "search",
		"web_fetch":    "fetch",
		"webfetch":     "fetch",
		"finish":       "terminate",
		"final_answer": "terminate",
		"done":         "terminate",
	}
	n := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := aliases[n]; ok {
		return mapped
	}
	return n
}

// temperatureOrDefault returns *t, or the default sampling temperature when t is nil.
func temperatureOrDefault(t *float64) float64 {
	if t == nil {
		return defaultTemperature
	}
	return *t
}

// truncate shortens s to at most n runes for logging.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
