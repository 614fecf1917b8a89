package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"funcagent/internal/agent"
	"funcagent/internal/domain"
	"funcagent/internal/metrics"
	"funcagent/internal/tool"
)

// NoStepsResult is the result text of a plan that had nothing to execute.
const NoStepsResult = "no steps executed"

// ExecutorConfig holds the dependencies shared by every step of a plan.
type ExecutorConfig struct {
	Provider    domain.Provider
	Tools       *tool.Registry // global registry; steps run with a subset of it
	Logger      *slog.Logger
	Limiter     *agent.RateLimiter // optional, shared by all steps
	Store       domain.RunStore    // optional run journal
	DeniedTools []string           // never offered to any step
	Model       string
	MaxTokens   int
	Temperature *float64 // nil uses the loop default
}

// Executor runs plans step by step, one fresh agent loop per step.
type Executor struct {
	provider domain.Provider
	tools    *tool.Registry
	logger   *slog.Logger
	limiter  *agent.RateLimiter
	store    domain.RunStore
	denied   []string
	model    string
	maxTok   int
	temp     *float64
}

// NewExecutor creates an executor. The terminate tool is added to the global
// registry when it is missing.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	tools := cfg.Tools
	if tools == nil {
		tools = tool.NewRegistry(cfg.Logger)
	}
	if !tools.Has(tool.TerminateName) {
		tools = tools.With(tool.NewTerminateTool())
	}
	return &Executor{
		provider: cfg.Provider,
		tools:    tools,
		logger:   cfg.Logger,
		limiter:  cfg.Limiter,
		store:    cfg.Store,
		denied:   cfg.DeniedTools,
		model:    cfg.Model,
		maxTok:   cfg.MaxTokens,
		temp:     cfg.Temperature,
	}
}

// Execute runs the steps of p in order, threading each step's result into
// the next step's instructions. A step that ends Failed stops the plan; the
// results of the steps before it are kept.
func (e *Executor) Execute(ctx context.Context, p *Plan) domain.PlanOutcome {
	start := time.Now()
	e.logger.Info("plan started", "plan", p.ID, "title", p.Title, "steps", len(p.Steps))

	out := domain.PlanOutcome{
		PlanID: p.ID,
		Title:  p.Title,
		Steps:  make([]domain.PlanStepResult, 0, len(p.Steps)),
	}

	var previous *string
	for _, step := range p.Steps {
		e.logger.Info("plan step started", "plan", p.ID, "step", step.Index, "requirement", step.Requirement)
		metrics.PlanStepsTotal.Inc()

		tools := EffectiveTools(e.tools, step.AllowedTools, e.denied)
		loop := agent.NewLoop(agent.LoopConfig{
			Provider:     e.provider,
			Tools:        tools,
			SystemPrompt: stepPrompt(step, previous),
			MaxSteps:     stepBudget(step),
			Model:        e.model,
			MaxTokens:    e.maxTok,
			Temperature:  e.temp,
			Limiter:      e.limiter,
			Logger:       e.logger.With("plan", p.ID, "step", step.Index),
		})
		res := loop.Run(ctx, step.Requirement)

		out.Steps = append(out.Steps, domain.PlanStepResult{
			Index:       step.Index,
			Requirement: step.Requirement,
			State:       res.State,
			Result:      res.Result,
			Steps:       res.Steps,
		})
		out.Usage = out.Usage.Add(res.Usage)
		e.logger.Info("plan step finished", "plan", p.ID, "step", step.Index, "state", res.State, "iterations", res.Steps)

		result := res.Result
		previous = &result

		if res.State == domain.StateFailed {
			e.logger.Error("plan step failed, stopping plan", "plan", p.ID, "step", step.Index)
			break
		}
	}

	out.State = aggregateState(out.Steps)
	if len(out.Steps) == 0 {
		out.Result = NoStepsResult
	} else {
		out.Result = out.Steps[len(out.Steps)-1].Result
	}

	metrics.PlanOutcome(string(out.State)).Inc()
	e.logger.Info("plan finished", "plan", p.ID, "state", out.State, "duration", time.Since(start).Round(time.Millisecond))
	e.journal(ctx, p, out)
	return out
}

// aggregateState is Completed when every executed step completed or ran out
// of budget, Failed otherwise.
func aggregateState(steps []domain.PlanStepResult) domain.State {
	for _, s := range steps {
		if s.State != domain.StateCompleted && s.State != domain.StateMaxStepsReached {
			return domain.StateFailed
		}
	}
	return domain.StateCompleted
}

func stepBudget(step domain.PlanStep) int {
	if step.MaxSteps > 0 {
		return step.MaxSteps
	}
	return DefaultStepBudget
}

// stepPrompt builds the system instructions for one step. previous is nil for
// the first step and otherwise holds the prior step's result verbatim.
func stepPrompt(step domain.PlanStep, previous *string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an AI assistant executing step %d of a multi-step plan.\n\n", step.Index)
	fmt.Fprintf(&sb, "Task for this step: %s\n\n", step.Requirement)
	if previous != nil {
		fmt.Fprintf(&sb, "Result of the previous step:\n%s\n\n", *previous)
	}
	sb.WriteString("When this step is complete, use the 'terminate' tool to submit the result.")
	return sb.String()
}

// journal records the outcome when a store is configured. Failures are
// logged and counted, never returned.
func (e *Executor) journal(ctx context.Context, p *Plan, out domain.PlanOutcome) {
	if e.store == nil {
		return
	}
	requirements := make([]string, 0, len(p.Steps))
	iterations := 0
	for _, s := range out.Steps {
		iterations += s.Steps
	}
	for _, s := range p.Steps {
		requirements = append(requirements, s.Requirement)
	}
	rec := domain.RunRecord{
		ID:        uuid.NewString(),
		Kind:      domain.RunPlan,
		Title:     p.Title,
		Request:   strings.Join(requirements, "; "),
		State:     out.State,
		Result:    out.Result,
		Steps:     iterations,
		TokensIn:  out.Usage.PromptTokens,
		TokensOut: out.Usage.CompletionTokens,
		StepLog:   out.Steps,
		CreatedAt: time.Now(),
	}
	if e.provider != nil {
		rec.Provider = e.provider.Name()
	}
	// Journal cancelled runs too.
	if err := e.store.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
		metrics.JournalErrors.Inc()
		e.logger.Warn("failed to journal plan run", "plan", p.ID, "error", err)
	}
}
