package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/mcp-orchestrator/pkg/config"
	applog "github.com/liliang-cn/mcp-orchestrator/pkg/log"
)

var (
	cfgFile     string
	serversFile string
	debug       bool
	cfg         *config.Config
)

var RootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Drive several MCP tool servers from one process",
	Long: `orchestrator connects to a set of MCP (Model Context Protocol) tool servers,
lists their tools and invokes them in sequence.

The default endpoints are:
  • filesystem - @modelcontextprotocol/server-filesystem rooted at the working directory
  • memory     - @modelcontextprotocol/server-memory knowledge graph

Use --builtin to run both servers in-process instead of launching them with npx.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need existing config
		if cmd.Name() == "version" || cmd.Name() == "init" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if serversFile != "" {
			cfg.ServersFile = serversFile
		}

		// serve speaks JSON-RPC on stdout, so logs must stay on stderr
		applog.Configure(os.Stderr, applog.ParseFormat(cfg.LogFormat))
		if debug || cfg.Debug {
			applog.SetDebug(true)
		}
		return nil
	},
}

func Execute() error {
	return RootCmd.Execute()
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	RootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "orchestrator version %s\n", RootCmd.Version)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path (default: ./orchestrator.toml or ~/.orchestrator/orchestrator.toml)")
	RootCmd.PersistentFlags().StringVar(&serversFile, "servers", "", "mcpServers.json file describing the endpoints")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(toolsCmd)
	RootCmd.AddCommand(callCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(configCmd)
}
