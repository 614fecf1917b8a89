package main

import (
	"fmt"
	"io"
	"strings"

	"funcagent/internal/domain"
	"funcagent/internal/plan"
	"funcagent/internal/provider"

	"github.com/spf13/cobra"
)

const (
	demoSystemPrompt = `You are a helpful AI assistant. You can use tools to answer questions.
Think step by step and use the appropriate tools to solve the user's request.
When you have the final answer, use the 'terminate' tool to submit it.`

	demoRequest = "Compute (15 + 27) * 3, then search for information about Java"
)

// demoPlan mirrors the second demo scenario: one step per tool, then a
// summary step that may only terminate.
func demoPlan() *plan.Plan {
	return plan.New("plan-001", "Math and information search").
		AddStep("Compute (100 - 37) * 2 + 15", []string{"calculator", "terminate"}, 5).
		AddStep("Search for information about Spring Boot", []string{"search", "terminate"}, 5).
		AddStep("Summarize the results of the previous two steps and give the final answer", []string{"terminate"}, 3)
}

// Canned model replies for --offline.
var (
	offlineAgentReplies = []string{
		`{"reasoning": "First compute the expression.", "tool": "calculator", "arguments": {"expression": "(15 + 27) * 3"}}`,
		`{"reasoning": "126. Now search for Java.", "tool": "search", "arguments": {"query": "Java"}}`,
		`{"reasoning": "I have both parts.", "tool": "terminate", "arguments": {"answer": "(15 + 27) * 3 = 126. Java is a general-purpose, object-oriented programming language."}}`,
	}
	offlinePlanReplies = []string{
		`{"reasoning": "Use the calculator.", "tool": "calculator", "arguments": {"expression": "(100 - 37) * 2 + 15"}}`,
		`{"reasoning": "The result is 141.", "tool": "terminate", "arguments": {"answer": "141"}}`,
		`{"reasoning": "Search for Spring Boot.", "tool": "search", "arguments": {"query": "Spring Boot"}}`,
		`{"reasoning": "Search done.", "tool": "terminate", "arguments": {"answer": "Spring Boot is a framework for building stand-alone Java applications."}}`,
		`{"reasoning": "Combine both results.", "tool": "terminate", "arguments": {"answer": "(100 - 37) * 2 + 15 = 141; Spring Boot is a framework for building stand-alone Java applications."}}`,
	}
)

func demoCmd() *cobra.Command {
	var (
		offline      bool
		providerName string
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the two demo scenarios (free agent, then a three-step plan)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var agentProv, planProv domain.Provider
			if offline {
				agentProv = provider.NewScripted(offlineAgentReplies...)
				planProv = provider.NewScripted(offlinePlanReplies...)
			}

			ctx, stop := signalContext()
			defer stop()
			w := cmd.OutOrStdout()

			rt, err := newRuntime(cfg, providerName, agentProv)
			if err != nil {
				return err
			}
			defer rt.Close()

			banner(w, "Example 1: simple agent")
			printLoopOutcome(w, rt.runAgent(ctx, demoSystemPrompt, demoRequest, 10))

			if planProv != nil {
				rt.provider = planProv
			}
			fmt.Fprintln(w)
			banner(w, "Example 2: plan mode")
			printPlanOutcome(w, rt.executor().Execute(ctx, demoPlan()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "use canned model replies instead of a live provider")
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider name from config (ignored with --offline)")
	return cmd
}

func banner(w io.Writer, title string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(w, "%s\n%s\n%s\n", line, title, line)
}
