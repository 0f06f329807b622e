package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	applog "github.com/liliang-cn/mcp-orchestrator/pkg/log"
	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
	"github.com/liliang-cn/mcp-orchestrator/pkg/servers"
)

var serveCmd = &cobra.Command{
	Use:   "serve <memory|filesystem> [dir...]",
	Short: "Run a built-in tool server over stdio",
	Long: `Run one of the built-in servers on stdin/stdout so that it can be used as
the command of an mcpServers.json entry, for example:

  {
    "mcpServers": {
      "memory": {"command": "orchestrator", "args": ["serve", "memory"]},
      "filesystem": {"command": "orchestrator", "args": ["serve", "filesystem", "."]}
    }
  }

The filesystem server is restricted to the given directories (default: the
working directory). The memory server uses the memory.store setting.`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: servers.Names(),
	RunE:      runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	name := args[0]
	opts := servers.Options{Roots: args[1:]}

	switch name {
	case mcp.FilesystemServer:
		if len(opts.Roots) == 0 {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			opts.Roots = []string{cwd}
		}
	case mcp.MemoryServer:
		if len(args) > 1 {
			return fmt.Errorf("memory server takes no directories")
		}
		store, err := cfg.MemoryStore()
		if err != nil {
			return err
		}
		opts.Store = store
	}

	srv, release, err := servers.Builtin(cmd.Context(), name, opts)
	if err != nil {
		if opts.Store != nil {
			opts.Store.Close()
		}
		return err
	}
	defer release()

	applog.Info("serving built-in MCP server over stdio", "server", name)
	return mcpserver.ServeStdio(srv)
}
