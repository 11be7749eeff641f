package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rowsync/rowsync/internal/harness"
)

// RunResult is the outcome of one scenario run.
type RunResult struct {
	Scenario string   `json:"scenario"`
	Pass     bool     `json:"pass"`
	Errors   []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml> [more.yaml...]",
		Short: "Run conformance scenarios",
		Long: `Run one or more scenario files against a fresh engine each.

A scenario ingests batch fixtures, applies a flow of edits and clears,
and asserts on the converged state and the changelog. Exit code 1 means
at least one scenario failed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, args, cmd)
		},
	}
}

func runScenarios(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var results []RunResult
	failed := 0
	for _, path := range paths {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			formatter.Error(err.Error())
			return WrapExitError(ExitCommandError, "load scenario", err)
		}
		formatter.VerboseLog("Running scenario %s", scenario.Name)

		res, err := harness.Run(cmd.Context(), scenario, filepath.Dir(path))
		if err != nil {
			formatter.Error(fmt.Sprintf("%s: %v", scenario.Name, err))
			return WrapExitError(ExitCommandError, "run scenario", err)
		}
		if !res.Pass {
			failed++
		}
		results = append(results, RunResult{
			Scenario: res.Scenario,
			Pass:     res.Pass,
			Errors:   res.Errors,
		})
	}

	if err := formatter.SuccessText(runText(results, failed), results); err != nil {
		return err
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}

func runText(results []RunResult, failed int) string {
	var b strings.Builder
	for _, res := range results {
		status := "PASS"
		if !res.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s  %s\n", status, res.Scenario)
		for _, msg := range res.Errors {
			fmt.Fprintf(&b, "      %s\n", msg)
		}
	}
	fmt.Fprintf(&b, "%d scenario(s), %d failed", len(results), failed)
	return b.String()
}
