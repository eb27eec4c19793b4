// Package cmd provides the command-line interface for glue-mcp.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/glue-mcp/internal/config"
	"github.com/danielolaszy/glue-mcp/internal/logging"
)

// Version is overridden at build time with -ldflags "-X github.com/danielolaszy/glue-mcp/cmd.Version=...".
var Version = "dev"

var (
	// cfg is loaded once per invocation before any subcommand runs.
	cfg *config.Config

	closeLogFile func() error
)

var rootCmd = &cobra.Command{
	Use:   "glue-mcp",
	Short: "glue-mcp exposes issue trackers as Model Context Protocol tools",
	Long: `glue-mcp is an MCP server that lets agents query and update tickets without
knowing which issue tracker is behind it. Linear, JIRA and GitHub Issues are
supported; the backend is chosen with --provider or MCP_PROVIDER.

Credentials are read from the environment or a .env file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("provider") {
			loaded.Provider, _ = cmd.Flags().GetString("provider")
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-file") {
			loaded.Log.File, _ = cmd.Flags().GetString("log-file")
		}
		cfg = loaded

		return setupLogging(cmd, loaded.Log)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLogFile == nil {
			return nil
		}
		err := closeLogFile()
		closeLogFile = nil
		return err
	},
}

func setupLogging(cmd *cobra.Command, logCfg config.LogConfig) error {
	level := logging.LogLevel(logCfg.Level)
	if logCfg.File == "" && !logCfg.ToFile {
		logging.SetupLogger(cmd.ErrOrStderr(), level)
		return nil
	}

	closer, err := logging.SetupFileLogger(logCfg.File, level)
	if err != nil {
		return fmt.Errorf("failed to set up log file: %w", err)
	}
	closeLogFile = closer
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version

	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().StringP("provider", "p", config.DefaultProvider, "Ticket provider (linear, jira or github)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(resourcesCmd)
}
