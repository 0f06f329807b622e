package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
	"github.com/liliang-cn/mcp-orchestrator/pkg/orchestrator"
)

var (
	toolsBuiltin bool
	toolsJSON    bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools [endpoint]",
	Short: "List the tools exposed by the endpoints",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsBuiltin, "builtin", false, "use the in-process filesystem and memory servers")
	toolsCmd.Flags().BoolVarP(&toolsJSON, "json", "j", false, "output in JSON format")
}

func runTools(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	o, release, err := newOrchestrator(ctx, toolsBuiltin)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, o.Cleanup(context.WithoutCancel(ctx)), release())
	}()

	if err := o.Initialize(ctx); err != nil {
		return err
	}

	endpoints := o.Sessions()
	if len(args) == 1 {
		endpoints = []string{args[0]}
	}

	listing := make(map[string][]mcp.Tool, len(endpoints))
	narrator := orchestrator.NewNarrator(cmd.OutOrStdout())
	for _, name := range endpoints {
		tools, err := o.ListTools(ctx, name)
		if err != nil {
			return err
		}
		if toolsJSON {
			listing[name] = tools
			continue
		}
		narrator.Tools(name, tools)
	}

	if toolsJSON {
		data, err := json.MarshalIndent(listing, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode tools: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	return nil
}
