// Package provider defines the ticket service port that every backend adapter
// implements and that the application layer depends on.
package provider

import (
	"context"

	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// TicketService is the capability interface for one ticket backend.
//
// Lookups by id return (nil, nil) when the entity does not exist; an error
// always means the lookup itself failed. Operations a backend cannot serve
// return an apperrors.CodeUnsupportedOperation error.
//
// All methods honour ctx cancellation. When CreateTicket or UpdateTicket is
// cancelled, whether the backend applied the change is unknown.
type TicketService interface {
	GetAssignedTickets(ctx context.Context, userID string) ([]models.Ticket, error)
	SearchTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error)
	CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, req models.UpdateTicketRequest) (*models.Ticket, error)

	GetCurrentUser(ctx context.Context) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)

	GetTeams(ctx context.Context) ([]models.Team, error)
	GetTeamMembers(ctx context.Context, teamID string) ([]models.User, error)

	GetLabels(ctx context.Context) ([]models.Label, error)
	CreateLabel(ctx context.Context, req models.CreateLabelRequest) (*models.Label, error)

	GetProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	GetProjectMilestones(ctx context.Context, projectID string) ([]models.ProjectMilestone, error)

	GetWorkspace(ctx context.Context) (*models.Workspace, error)
}

// Config carries the settings an adapter needs to reach its backend.
type Config struct {
	// Provider is the registered adapter name (e.g., "linear")
	Provider string

	// APIToken authenticates against the backend
	APIToken string

	// BaseURL overrides the backend endpoint; empty means the provider default
	BaseURL string

	// WorkspaceID scopes the adapter; for GitHub this is "owner/repo"
	WorkspaceID string

	// Username is used by backends with basic auth (Jira)
	Username string
}
