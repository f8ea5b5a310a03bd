package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/awantoch/n8n-mcp/config"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/core"
	"github.com/awantoch/n8n-mcp/utils"
)

var (
	exit       = os.Exit
	configPath string
	debug      bool
)

// NewRootCmd creates the root command with persistent flags and subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          constants.ServerName,
		Short:        constants.DescRoot,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.ConfigFileName, "Path to YAML config")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Load environment variables from .env file, if present
		_ = godotenv.Load(constants.EnvFileName)
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSelfTestCmd(),
		newToolsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadDependencies reads the config, applies the log level and wires the
// dispatcher.
func loadDependencies() (*core.Dependencies, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.Log.Level = constants.LogLevelDebug
	}
	utils.SetLevel(cfg.Log.Level)
	return core.InitializeDependencies(cfg)
}
