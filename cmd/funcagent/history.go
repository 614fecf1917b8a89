package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"funcagent/internal/domain"
	"funcagent/internal/memory"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List journaled runs, or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("run journal is disabled (journal.enabled=false)")
			}
			store, err := memory.NewSQLiteStore(cfg.Journal.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				run, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				printRun(w, *run)
				return nil
			}

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs journaled yet.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %s  %-5s %-10s %3d  %s\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Kind, r.State, r.Steps, r.Title)
			}
			counts, err := store.CountByState(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\ncompleted=%d max_steps=%d failed=%d\n",
				counts[domain.StateCompleted], counts[domain.StateMaxStepsReached], counts[domain.StateFailed])
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	return cmd
}

func printRun(w io.Writer, r domain.RunRecord) {
	fmt.Fprintf(w, "Run %s (%s)\n", r.ID, r.Kind)
	fmt.Fprintf(w, "  title:    %s\n", r.Title)
	fmt.Fprintf(w, "  created:  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  provider: %s\n", r.Provider)
	fmt.Fprintf(w, "  state:    %s\n", r.State)
	fmt.Fprintf(w, "  steps:    %d\n", r.Steps)
	fmt.Fprintf(w, "  tokens:   %d in / %d out\n", r.TokensIn, r.TokensOut)
	fmt.Fprintf(w, "  request:  %s\n", r.Request)
	fmt.Fprintf(w, "  result:   %s\n", r.Result)
	for _, s := range r.StepLog {
		fmt.Fprintf(w, "  [%d] %-10s %s\n", s.Index, s.State, s.Requirement)
		fmt.Fprintf(w, "      %s\n", strings.ReplaceAll(s.Result, "\n", "\n      "))
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalogue offered to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg := builtinTools(cfg)
			fmt.Fprint(cmd.OutOrStdout(), reg.Catalogue())
			if len(cfg.Tools.DeniedTools) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nDenied: %s\n", strings.Join(cfg.Tools.DeniedTools, ", "))
			}
			return nil
		},
	}
}
