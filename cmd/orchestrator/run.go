package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	applog "github.com/liliang-cn/mcp-orchestrator/pkg/log"
	"github.com/liliang-cn/mcp-orchestrator/pkg/orchestrator"
)

var (
	runBuiltin     bool
	runSteps       []string
	runProjectFile string
	runStrict      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the multi-server demonstration",
	Long: `Run the demonstration sequence against the configured endpoints:

  list-tools         list the tools of every endpoint
  analyze-project    read the project manifest and store it in the knowledge graph
  memory-operations  create entities and relations, then read the graph
  file-operations    list the project directory
  summarize          summarize the graph with the language model (llm.enabled only)

A failing step is reported and the next step still runs. All sessions are
closed when the run ends, whichever way it ends.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	runCmd.Flags().BoolVar(&runBuiltin, "builtin", false, "use the in-process filesystem and memory servers")
	runCmd.Flags().StringSliceVar(&runSteps, "step", nil, "run only the named steps (repeatable)")
	runCmd.Flags().StringVar(&runProjectFile, "project-file", "", "manifest read by analyze-project (default from config)")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "exit non-zero when any step fails")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, release, err := newOrchestrator(ctx, runBuiltin)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			applog.Warn("failed to release built-in servers", "error", err)
		}
	}()

	projectFile := runProjectFile
	if projectFile == "" {
		projectFile = cfg.Demo.ProjectFile
	}
	steps := runSteps
	if len(steps) == 0 {
		steps = cfg.Demo.Steps
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	report, err := orchestrator.RunDemo(ctx, o, orchestrator.DemoOptions{
		Root:        cwd,
		ProjectFile: projectFile,
		Steps:       steps,
		Output:      cmd.OutOrStdout(),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}
	if runStrict && !report.OK() {
		return fmt.Errorf("%d step(s) failed", len(report.Failed()))
	}
	return nil
}
