package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"funcagent/internal/config"
	"funcagent/internal/memory"
	"funcagent/internal/provider"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your funcagent installation",
		Long: `Verifies that the configuration, providers, run journal and tools are
correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			cfgPath := resolveConfigPath()
			fmt.Fprintf(w, "funcagent doctor v%s\n\n", version)

			var r report

			if err := config.LoadDotEnv(); err != nil {
				r.warn(w, ".env", err.Error())
			}

			// 1. Config file exists and validates
			cfg, err := config.Load(cfgPath)
			switch {
			case err == nil:
				r.pass(w, "Config file", cfgPath)
			case errors.Is(err, fs.ErrNotExist):
				r.warn(w, "Config file", fmt.Sprintf("not found at %s, using defaults (run 'funcagent init')", cfgPath))
				cfg = config.Defaults()
			default:
				r.fail(w, "Config file", err.Error())
				return r.summary(w)
			}

			// 2. Run journal opens and migrates
			if cfg.Journal.Enabled {
				store, err := memory.NewSQLiteStore(cfg.Journal.DBPath, logger)
				if err != nil {
					r.fail(w, "Run journal", err.Error())
				} else {
					store.Close()
					r.pass(w, "Run journal", cfg.Journal.DBPath)
				}
			} else {
				r.warn(w, "Run journal", "disabled")
			}

			// 3. Providers construct
			factory := provider.NewFactory(cfg, logger)
			enabled := 0
			for name, p := range cfg.Providers {
				if !p.Enabled {
					continue
				}
				enabled++
				if _, err := factory.Get(name); err != nil {
					r.fail(w, "Provider: "+name, err.Error())
				} else {
					r.pass(w, "Provider: "+name, p.Type+" "+p.DefaultModel)
				}
			}
			if enabled == 0 {
				r.fail(w, "Providers", "no providers enabled")
			}
			if _, err := factory.Default(); err != nil {
				r.fail(w, "Default provider", err.Error())
			}

			// 4. Tools
			reg := builtinTools(cfg)
			r.pass(w, "Tools", fmt.Sprintf("%d registered %v", reg.Len(), reg.Names()))

			return r.summary(w)
		},
	}
}

type report struct {
	passed, warned, failed int
}

func (r *report) pass(w io.Writer, check, detail string) {
	r.passed++
	fmt.Fprintf(w, "  [PASS] %-20s %s\n", check, detail)
}

func (r *report) fail(w io.Writer, check, detail string) {
	r.failed++
	fmt.Fprintf(w, "  [FAIL] %-20s %s\n", check, detail)
}

func (r *report) warn(w io.Writer, check, detail string) {
	r.warned++
	fmt.Fprintf(w, "  [WARN] %-20s %s\n", check, detail)
}

func (r *report) summary(w io.Writer) error {
	fmt.Fprintf(w, "\nResults: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	return nil
}
