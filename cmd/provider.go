package cmd

import (
	"context"
	"fmt"

	"github.com/danielolaszy/glue-mcp/internal/app"
	"github.com/danielolaszy/glue-mcp/internal/config"
	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/internal/mcpserver"
	"github.com/danielolaszy/glue-mcp/internal/provider"

	// Adapters register themselves with the provider registry.
	_ "github.com/danielolaszy/glue-mcp/internal/github"
	_ "github.com/danielolaszy/glue-mcp/internal/jira"
	_ "github.com/danielolaszy/glue-mcp/internal/linear"
)

// newService builds the configured backend. Tests replace it with a fake.
var newService = func(ctx context.Context, c *config.Config) (provider.TicketService, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return provider.New(ctx, c.ProviderConfig())
}

// buildServer wires configuration, backend, application and dispatcher.
func buildServer(ctx context.Context) (*mcpserver.Server, error) {
	service, err := newService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.Provider, err)
	}
	logging.Debug("provider initialized", "provider", cfg.Provider)
	return mcpserver.New(app.New(service, cfg.Provider)), nil
}

// catalogServer is enough for listing tools and resources, which never
// reach the backend.
func catalogServer() *mcpserver.Server {
	return mcpserver.New(app.New(nil, cfg.Provider))
}
