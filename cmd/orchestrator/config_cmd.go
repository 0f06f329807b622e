package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/liliang-cn/mcp-orchestrator/pkg/config"
	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
)

var (
	configInitPath    string
	configInitForce   bool
	configInitServers string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the orchestrator configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default orchestrator.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			path = config.FileName
		}
		if err := config.Default().WriteFile(path, configInitForce); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", abs)

		if configInitServers == "" {
			return nil
		}
		if !configInitForce {
			if _, err := os.Stat(configInitServers); err == nil {
				return fmt.Errorf("servers file already exists: %s", configInitServers)
			}
		}
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		if err := mcp.SaveServersJSON(configInitServers, mcp.DefaultServers(cwd)); err != nil {
			return err
		}
		abs, _ = filepath.Abs(configInitServers)
		fmt.Fprintf(cmd.OutOrStdout(), "Servers written to %s\n", abs)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.LLM.APIKey != "" {
			shown.LLM.APIKey = "********"
		}
		data, err := toml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitPath, "output", "o", "", "file to write (default ./orchestrator.toml)")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configInitCmd.Flags().StringVar(&configInitServers, "write-servers", "", "also write the default endpoints as an mcpServers.json file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
