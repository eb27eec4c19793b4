// Package main is the entry point for the glue-mcp server.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/glue-mcp/cmd"
	"github.com/danielolaszy/glue-mcp/internal/config"
	"github.com/danielolaszy/glue-mcp/internal/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
