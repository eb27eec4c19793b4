package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/glue-mcp/internal/mcpserver"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and call tools without an MCP client",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, tool := range catalogServer().ListTools() {
			fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
		}
		return w.Flush()
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <name>",
	Short: "Call a tool and print its JSON result",
	Long: `Call a tool against the configured provider and print the result.

Example:
  glue-mcp tools call get_ticket --args '{"issue_id": "ENG-123"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawArgs, err := cmd.Flags().GetString("args")
		if err != nil {
			return err
		}

		server, err := buildServer(cmd.Context())
		if err != nil {
			return err
		}

		result, callErr := server.CallTool(cmd.Context(), args[0], json.RawMessage(rawArgs))
		if callErr != nil {
			if err := writeJSON(cmd, mcpserver.EncodeError(callErr)); err != nil {
				return err
			}
			return callErr
		}
		return writeJSON(cmd, result)
	},
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func init() {
	toolsCallCmd.Flags().String("args", "{}", "Tool arguments as a JSON object")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
}
