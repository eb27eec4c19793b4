// Package app composes ticket service calls into the use cases exposed as tools.
package app

import (
	"context"
	"fmt"

	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/internal/provider"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// Application holds the ticket service shared by every tool and resource.
// It keeps no state of its own and is safe for concurrent use when the
// service is.
type Application struct {
	service  provider.TicketService
	provider string
}

// New creates an Application backed by service. providerName is only used
// for log context.
func New(service provider.TicketService, providerName string) *Application {
	return &Application{service: service, provider: providerName}
}

// Provider returns the name of the active backend.
func (a *Application) Provider() string {
	return a.provider
}

// GetMyActiveTickets returns the current user's assigned tickets that still
// need work. Closed and cancelled tickets are dropped; custom states are kept.
func (a *Application) GetMyActiveTickets(ctx context.Context) ([]models.Ticket, error) {
	log := logging.WithOperation("get_my_active_tickets", "provider", a.provider)

	user, err := a.service.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_my_active_tickets: %w", err)
	}

	tickets, err := a.service.GetAssignedTickets(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get_my_active_tickets for user %s: %w", user.ID, err)
	}

	active := make([]models.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.IsActive() {
			active = append(active, ticket)
		}
	}

	log.Info("fetched active tickets", "user_id", user.ID, "assigned", len(tickets), "active", len(active))
	return active, nil
}

// GetAssignedTickets returns the tickets assigned to userID.
func (a *Application) GetAssignedTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	tickets, err := a.service.GetAssignedTickets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_assigned_tickets for user %s: %w", userID, err)
	}
	logging.WithOperation("get_assigned_tickets", "provider", a.provider).
		Info("fetched assigned tickets", "user_id", userID, "count", len(tickets))
	return tickets, nil
}

// SearchTickets returns the tickets matching filter.
func (a *Application) SearchTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	tickets, err := a.service.SearchTickets(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search_tickets: %w", err)
	}
	logging.WithOperation("search_tickets", "provider", a.provider).
		Info("searched tickets", "count", len(tickets))
	return tickets, nil
}

// SearchTicketsByQuery is a free-text search. An empty query matches everything.
func (a *Application) SearchTicketsByQuery(ctx context.Context, query string) ([]models.Ticket, error) {
	filter := models.TicketFilter{}
	if query != "" {
		filter.SearchQuery = &query
	}
	return a.SearchTickets(ctx, filter)
}

// GetTicket returns the ticket with id, or nil when it does not exist.
func (a *Application) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := a.service.GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_ticket %s: %w", id, err)
	}
	logging.WithOperation("get_ticket", "provider", a.provider).
		Info("fetched ticket", "issue_id", id, "found", ticket != nil)
	return ticket, nil
}

// CreateTicket creates a ticket and returns it as stored by the backend.
func (a *Application) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	ticket, err := a.service.CreateTicket(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create_ticket: %w", err)
	}
	logging.WithOperation("create_ticket", "provider", a.provider).
		Info("created ticket", "issue_id", ticket.ID, "identifier", ticket.Identifier)
	return ticket, nil
}

// UpdateTicket applies a partial update and returns the updated ticket.
func (a *Application) UpdateTicket(ctx context.Context, req models.UpdateTicketRequest) (*models.Ticket, error) {
	ticket, err := a.service.UpdateTicket(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update_ticket %s: %w", req.ID, err)
	}
	logging.WithOperation("update_ticket", "provider", a.provider).
		Info("updated ticket", "issue_id", ticket.ID, "identifier", ticket.Identifier)
	return ticket, nil
}

// GetCurrentUser returns the user the credentials belong to.
func (a *Application) GetCurrentUser(ctx context.Context) (*models.User, error) {
	user, err := a.service.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_current_user: %w", err)
	}
	logging.WithOperation("get_current_user", "provider", a.provider).
		Info("fetched current user", "user_id", user.ID)
	return user, nil
}

// GetUser returns the user with id, or nil when it does not exist.
func (a *Application) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := a.service.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_user %s: %w", id, err)
	}
	logging.WithOperation("get_user", "provider", a.provider).
		Info("fetched user", "user_id", id, "found", user != nil)
	return user, nil
}

func (a *Application) GetTeams(ctx context.Context) ([]models.Team, error) {
	teams, err := a.service.GetTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_teams: %w", err)
	}
	logging.WithOperation("list_teams", "provider", a.provider).Info("listed teams", "count", len(teams))
	return teams, nil
}

func (a *Application) GetTeamMembers(ctx context.Context, teamID string) ([]models.User, error) {
	members, err := a.service.GetTeamMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get_team_members %s: %w", teamID, err)
	}
	logging.WithOperation("get_team_members", "provider", a.provider).
		Info("listed team members", "team_id", teamID, "count", len(members))
	return members, nil
}

func (a *Application) GetLabels(ctx context.Context) ([]models.Label, error) {
	labels, err := a.service.GetLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_labels: %w", err)
	}
	logging.WithOperation("list_labels", "provider", a.provider).Info("listed labels", "count", len(labels))
	return labels, nil
}

func (a *Application) CreateLabel(ctx context.Context, req models.CreateLabelRequest) (*models.Label, error) {
	label, err := a.service.CreateLabel(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create_label %s: %w", req.Name, err)
	}
	logging.WithOperation("create_label", "provider", a.provider).
		Info("created label", "label_id", label.ID, "name", label.Name)
	return label, nil
}

func (a *Application) GetProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := a.service.GetProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_projects: %w", err)
	}
	logging.WithOperation("list_projects", "provider", a.provider).Info("listed projects", "count", len(projects))
	return projects, nil
}

// GetProject returns the project with id, or nil when it does not exist.
func (a *Application) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := a.service.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_project %s: %w", id, err)
	}
	logging.WithOperation("get_project", "provider", a.provider).
		Info("fetched project", "project_id", id, "found", project != nil)
	return project, nil
}

func (a *Application) GetProjectMilestones(ctx context.Context, projectID string) ([]models.ProjectMilestone, error) {
	milestones, err := a.service.GetProjectMilestones(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get_project_milestones %s: %w", projectID, err)
	}
	logging.WithOperation("get_project_milestones", "provider", a.provider).
		Info("listed milestones", "project_id", projectID, "count", len(milestones))
	return milestones, nil
}

func (a *Application) GetWorkspace(ctx context.Context) (*models.Workspace, error) {
	workspace, err := a.service.GetWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_workspace: %w", err)
	}
	logging.WithOperation("get_workspace", "provider", a.provider).
		Info("fetched workspace", "workspace_id", workspace.ID, "teams", len(workspace.Teams))
	return workspace, nil
}
