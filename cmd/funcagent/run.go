package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"funcagent/internal/agent"
	"funcagent/internal/config"
	"funcagent/internal/domain"
	"funcagent/internal/memory"
	"funcagent/internal/metrics"
	"funcagent/internal/plan"
	"funcagent/internal/provider"
	"funcagent/internal/tool"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// runtime bundles what a run or plan needs, built once from config.
type runtime struct {
	cfg      *config.Config
	provider domain.Provider
	tools    *tool.Registry
	limiter  *agent.RateLimiter
	store    *memory.SQLiteStore // nil when the journal is disabled
	model    string
}

// newRuntime builds the runtime. providerName selects a configured provider;
// empty means the default (or failover chain). A non-nil prov bypasses the
// factory entirely.
func newRuntime(cfg *config.Config, providerName string, prov domain.Provider) (*runtime, error) {
	if prov == nil {
		factory := provider.NewFactory(cfg, logger)
		var err error
		if providerName != "" {
			prov, err = factory.Get(providerName)
		} else {
			prov, err = factory.Default()
		}
		if err != nil {
			return nil, fmt.Errorf("provider: %w", err)
		}
	}

	rt := &runtime{
		cfg:      cfg,
		provider: prov,
		tools:    builtinTools(cfg),
		limiter:  agent.NewRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RequestsPerMinute),
	}

	if cfg.Journal.Enabled {
		store, err := memory.NewSQLiteStore(cfg.Journal.DBPath, logger)
		if err != nil {
			logger.Warn("run journal unavailable", "path", cfg.Journal.DBPath, "err", err)
		} else {
			rt.store = store
		}
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.store != nil {
		rt.store.Close()
	}
}

// runStore returns the journal as an interface value that is nil when no
// store was opened.
func (rt *runtime) runStore() domain.RunStore {
	if rt.store == nil {
		return nil
	}
	return rt.store
}

func builtinTools(cfg *config.Config) *tool.Registry {
	return tool.Builtins(tool.BuiltinConfig{
		Fetch:        cfg.Tools.Fetch.Enabled,
		FetchTimeout: time.Duration(cfg.Tools.Fetch.TimeoutSeconds) * time.Second,
	}, logger)
}

// runAgent executes one ad-hoc loop over the global tool set (minus denied
// tools) and journals the outcome.
func (rt *runtime) runAgent(ctx context.Context, systemPrompt, request string, maxSteps int) domain.LoopOutcome {
	if systemPrompt == "" {
		systemPrompt = rt.cfg.General.SystemPrompt
	}
	if maxSteps <= 0 {
		maxSteps = rt.cfg.General.MaxSteps
	}
	loop := agent.NewLoop(agent.LoopConfig{
		Provider:     rt.provider,
		Tools:        plan.EffectiveTools(rt.tools, rt.tools.Names(), rt.cfg.Tools.DeniedTools),
		SystemPrompt: systemPrompt,
		MaxSteps:     maxSteps,
		Model:        rt.model,
		MaxTokens:    rt.cfg.General.MaxTokens,
		Temperature:  &rt.cfg.General.Temperature,
		Limiter:      rt.limiter,
		Logger:       logger,
	})
	out := loop.Run(ctx, request)

	if rt.store != nil {
		rec := domain.RunRecord{
			ID:        uuid.NewString(),
			Kind:      domain.RunAgent,
			Title:     truncateTitle(request),
			Request:   request,
			State:     out.State,
			Result:    out.Result,
			Steps:     out.Steps,
			TokensIn:  out.Usage.PromptTokens,
			TokensOut: out.Usage.CompletionTokens,
			Provider:  rt.provider.Name(),
			CreatedAt: time.Now(),
		}
		if err := rt.store.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
			metrics.JournalErrors.Inc()
			logger.Warn("failed to journal run", "err", err)
		}
	}
	return out
}

func (rt *runtime) executor() *plan.Executor {
	return plan.NewExecutor(plan.ExecutorConfig{
		Provider:    rt.provider,
		Tools:       rt.tools,
		Logger:      logger,
		Limiter:     rt.limiter,
		Store:       rt.runStore(),
		DeniedTools: rt.cfg.Tools.DeniedTools,
		Model:       rt.model,
		MaxTokens:   rt.cfg.General.MaxTokens,
		Temperature: &rt.cfg.General.Temperature,
	})
}

func truncateTitle(s string) string {
	const maxTitle = 60
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxTitle {
		return s
	}
	return string(r[:maxTitle]) + "..."
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	var (
		providerName string
		model        string
		maxSteps     int
		stats        bool
	)
	cmd := &cobra.Command{
		Use:   "run [request]",
		Short: "Run the agent loop on a single request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg, providerName, nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.model = model

			ctx, stop := signalContext()
			defer stop()

			out := rt.runAgent(ctx, "", strings.Join(args, " "), maxSteps)
			printLoopOutcome(cmd.OutOrStdout(), out)
			if stats {
				fmt.Fprintln(cmd.ErrOrStderr())
				metrics.Collector.WriteText(cmd.ErrOrStderr())
			}
			if out.State == domain.StateFailed {
				return fmt.Errorf("run failed: %s", out.Result)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider name from config (default: general.defaultProvider)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model override")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "iteration budget (default: general.maxSteps)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print metrics after the run")
	return cmd
}

func planCmd() *cobra.Command {
	var (
		providerName string
		model        string
		stats        bool
	)
	cmd := &cobra.Command{
		Use:   "plan [file.yaml]",
		Short: "Execute a plan file step by step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg, providerName, nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.model = model

			ctx, stop := signalContext()
			defer stop()

			out := rt.executor().Execute(ctx, p)
			printPlanOutcome(cmd.OutOrStdout(), out)
			if stats {
				fmt.Fprintln(cmd.ErrOrStderr())
				metrics.Collector.WriteText(cmd.ErrOrStderr())
			}
			if out.State == domain.StateFailed {
				return fmt.Errorf("plan %s failed", out.PlanID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider name from config (default: general.defaultProvider)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model override")
	cmd.Flags().BoolVar(&stats, "stats", false, "print metrics after the plan")
	return cmd
}

func printLoopOutcome(w io.Writer, out domain.LoopOutcome) {
	fmt.Fprintln(w, "Result:")
	fmt.Fprintf(w, "  state:  %s\n", out.State)
	fmt.Fprintf(w, "  steps:  %d\n", out.Steps)
	fmt.Fprintf(w, "  tokens: %d in / %d out\n", out.Usage.PromptTokens, out.Usage.CompletionTokens)
	fmt.Fprintf(w, "  result: %s\n", out.Result)
}

func printPlanOutcome(w io.Writer, out domain.PlanOutcome) {
	fmt.Fprintln(w, "Plan result:")
	fmt.Fprintf(w, "  plan:   %s (%s)\n", out.PlanID, out.Title)
	fmt.Fprintf(w, "  state:  %s\n", out.State)
	fmt.Fprintf(w, "  steps:  %d\n", len(out.Steps))
	for _, s := range out.Steps {
		fmt.Fprintf(w, "\n  step %d:\n", s.Index)
		fmt.Fprintf(w, "    task:   %s\n", s.Requirement)
		fmt.Fprintf(w, "    state:  %s\n", s.State)
		fmt.Fprintf(w, "    used:   %d iterations\n", s.Steps)
		fmt.Fprintf(w, "    result: %s\n", s.Result)
	}
	fmt.Fprintf(w, "\nFinal result: %s\n", out.Result)
}
