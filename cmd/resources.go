package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Inspect and read resources without an MCP client",
}

var resourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the readable resource URIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, resource := range catalogServer().ListResources() {
			fmt.Fprintf(w, "%s\t%s\n", resource.URI, resource.Description)
		}
		return w.Flush()
	},
}

var resourcesReadCmd = &cobra.Command{
	Use:   "read <uri>",
	Short: "Read a resource and print its content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := buildServer(cmd.Context())
		if err != nil {
			return err
		}

		content, err := server.ReadResource(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), content.Text)
		return nil
	},
}

func init() {
	resourcesCmd.AddCommand(resourcesListCmd)
	resourcesCmd.AddCommand(resourcesReadCmd)
}
