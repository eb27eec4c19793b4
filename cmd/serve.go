package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the MCP server on stdio, or on streamable HTTP when --http is given.

Example:
  glue-mcp serve -p jira
  glue-mcp serve -p github --http localhost:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		httpAddr := cfg.Server.HTTPAddr
		if cmd.Flags().Changed("http") {
			httpAddr, _ = cmd.Flags().GetString("http")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server, err := buildServer(ctx)
		if err != nil {
			return err
		}

		transport := "stdio"
		if httpAddr != "" {
			transport = "http"
		}
		logging.Info("starting glue-mcp",
			"version", Version,
			"provider", cfg.Provider,
			"transport", transport)

		return mcpserver.Serve(ctx, server, Version, httpAddr)
	},
}

func init() {
	serveCmd.Flags().String("http", "", "Serve streamable HTTP on this address instead of stdio (e.g. localhost:8080)")
}
