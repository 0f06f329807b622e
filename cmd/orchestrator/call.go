package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	callBuiltin bool
	callJSON    bool
)

var callCmd = &cobra.Command{
	Use:   "call <endpoint> <tool> [json-args]",
	Short: "Invoke one tool on one endpoint",
	Long: `Invoke a tool with JSON arguments.

Examples:
  orchestrator call filesystem read_file '{"path": "go.mod"}'
  orchestrator call memory read_graph
  orchestrator call --builtin memory search_nodes '{"query": "library"}'`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runCall,
}

func init() {
	callCmd.Flags().BoolVar(&callBuiltin, "builtin", false, "use the in-process filesystem and memory servers")
	callCmd.Flags().BoolVarP(&callJSON, "json", "j", false, "output the full result in JSON format")
}

func runCall(cmd *cobra.Command, args []string) (err error) {
	toolArgs := map[string]any{}
	if len(args) == 3 && args[2] != "" {
		if err := json.Unmarshal([]byte(args[2]), &toolArgs); err != nil {
			return fmt.Errorf("invalid JSON arguments: %w", err)
		}
	}

	ctx := cmd.Context()
	o, release, err := newOrchestrator(ctx, callBuiltin)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, o.Cleanup(context.WithoutCancel(ctx)), release())
	}()

	if err := o.Initialize(ctx); err != nil {
		return err
	}

	result, err := o.Invoke(ctx, args[0], args[1], toolArgs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if callJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return result.Err()
	}

	for _, c := range result.Content {
		switch c.Type {
		case "text":
			fmt.Fprintln(out, c.Text)
		default:
			fmt.Fprintf(out, "[%s content %s %s]\n", c.Type, c.MIMEType, c.URI)
		}
	}
	return result.Err()
}
