package mcpserver

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// Tool describes one callable tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

type toolHandler func(ctx context.Context, args arguments) (any, error)

type toolDef struct {
	tool   Tool
	handle toolHandler
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func numberProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: description}
}

func stringsProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: description, Items: &jsonschema.Schema{Type: "string"}}
}

func objectProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: description}
}

func inputSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: properties, Required: required}
}

const (
	priorityHelp = "Priority: none, lowest, low, medium, high, highest, or a provider-specific name"
	stateHelp    = "State classification: open, in_progress, closed, cancelled, or a provider state name"
	dueDateHelp  = "Due date as YYYY-MM-DD or an RFC 3339 timestamp"
)

func ticketsResult(tickets []models.Ticket) map[string]any {
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return map[string]any{"tickets": tickets, "count": len(tickets)}
}

// catalog builds the tool table. Order is the order reported by ListTools.
func (s *Server) catalog() []toolDef {
	return []toolDef{
		{
			tool: Tool{
				Name:        "get_assigned_tickets",
				Description: "Get the tickets assigned to a user",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"user_id": stringProp("ID of the user whose tickets to fetch"),
				}, "user_id"),
			},
			handle: s.getAssignedTickets,
		},
		{
			tool: Tool{
				Name:        "get_current_user",
				Description: "Get the user the server is authenticated as",
				InputSchema: inputSchema(nil),
			},
			handle: s.getCurrentUser,
		},
		{
			tool: Tool{
				Name:        "get_my_active_tickets",
				Description: "Get the current user's tickets that are not closed or cancelled",
				InputSchema: inputSchema(nil),
			},
			handle: s.getMyActiveTickets,
		},
		{
			tool: Tool{
				Name:        "search_tickets",
				Description: "Search tickets by text and filters. All given filters must match",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"query":          stringProp("Free-text search over title and description"),
					"assignee_id":    stringProp("Only tickets assigned to this user"),
					"project_id":     stringProp("Only tickets in this project"),
					"state":          stringProp(stateHelp),
					"priority":       stringProp(priorityHelp),
					"labels":         stringsProp("Tickets must carry every one of these labels"),
					"custom_filters": objectProp("Provider-native filters keyed by field name"),
				}),
			},
			handle: s.searchTickets,
		},
		{
			tool: Tool{
				Name:        "get_ticket",
				Description: "Get a ticket by ID or human-readable identifier",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"issue_id": stringProp("Ticket ID or identifier such as ENG-123"),
				}, "issue_id"),
			},
			handle: s.getTicket,
		},
		{
			tool: Tool{
				Name:        "create_ticket",
				Description: "Create a ticket",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"title":         stringProp("Ticket title"),
					"description":   stringProp("Ticket body"),
					"priority":      stringProp(priorityHelp),
					"assignee_id":   stringProp("User to assign"),
					"team_id":       stringProp("Team that owns the ticket (required by some providers)"),
					"project_id":    stringProp("Project to file the ticket under"),
					"label_ids":     stringsProp("Labels to attach"),
					"due_date":      stringProp(dueDateHelp),
					"estimate":      numberProp("Estimate in the provider's unit"),
					"custom_fields": objectProp("Provider-specific fields"),
				}, "title"),
			},
			handle: s.createTicket,
		},
		{
			tool: Tool{
				Name:        "update_ticket",
				Description: "Update a ticket. Only the given fields change",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"issue_id":      stringProp("Ticket to update"),
					"title":         stringProp("New title"),
					"description":   stringProp("New body"),
					"priority":      stringProp(priorityHelp),
					"assignee_id":   stringProp("User to assign, or an empty string to unassign"),
					"state_id":      stringProp("Provider workflow state or transition ID"),
					"label_ids":     stringsProp("Replacement label set"),
					"due_date":      stringProp(dueDateHelp),
					"estimate":      numberProp("Estimate in the provider's unit"),
					"custom_fields": objectProp("Provider-specific fields"),
				}, "issue_id"),
			},
			handle: s.updateTicket,
		},
		{
			tool: Tool{
				Name:        "get_user",
				Description: "Get a user by ID",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"user_id": stringProp("User ID"),
				}, "user_id"),
			},
			handle: s.getUser,
		},
		{
			tool: Tool{
				Name:        "list_teams",
				Description: "List the teams in the workspace",
				InputSchema: inputSchema(nil),
			},
			handle: s.listTeams,
		},
		{
			tool: Tool{
				Name:        "get_team_members",
				Description: "List the members of a team",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"team_id": stringProp("Team ID"),
				}, "team_id"),
			},
			handle: s.getTeamMembers,
		},
		{
			tool: Tool{
				Name:        "list_labels",
				Description: "List the labels available for tickets",
				InputSchema: inputSchema(nil),
			},
			handle: s.listLabels,
		},
		{
			tool: Tool{
				Name:        "create_label",
				Description: "Create a label",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"name":        stringProp("Label name"),
					"color":       stringProp("Hex color such as #ff0000"),
					"description": stringProp("Label description"),
					"team_id":     stringProp("Team to scope the label to"),
				}, "name", "color"),
			},
			handle: s.createLabel,
		},
		{
			tool: Tool{
				Name:        "list_projects",
				Description: "List projects",
				InputSchema: inputSchema(nil),
			},
			handle: s.listProjects,
		},
		{
			tool: Tool{
				Name:        "get_project",
				Description: "Get a project by ID",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"project_id": stringProp("Project ID"),
				}, "project_id"),
			},
			handle: s.getProject,
		},
		{
			tool: Tool{
				Name:        "get_project_milestones",
				Description: "List the milestones of a project",
				InputSchema: inputSchema(map[string]*jsonschema.Schema{
					"project_id": stringProp("Project ID"),
				}, "project_id"),
			},
			handle: s.getProjectMilestones,
		},
		{
			tool: Tool{
				Name:        "get_workspace",
				Description: "Get the workspace and its teams",
				InputSchema: inputSchema(nil),
			},
			handle: s.getWorkspace,
		},
	}
}

func (s *Server) getAssignedTickets(ctx context.Context, args arguments) (any, error) {
	userID, err := args.requiredString("user_id")
	if err != nil {
		return nil, err
	}
	tickets, err := s.app.GetAssignedTickets(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ticketsResult(tickets), nil
}

func (s *Server) getCurrentUser(ctx context.Context, _ arguments) (any, error) {
	user, err := s.app.GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": user}, nil
}

func (s *Server) getMyActiveTickets(ctx context.Context, _ arguments) (any, error) {
	tickets, err := s.app.GetMyActiveTickets(ctx)
	if err != nil {
		return nil, err
	}
	return ticketsResult(tickets), nil
}

func (s *Server) searchTickets(ctx context.Context, args arguments) (any, error) {
	var (
		filter models.TicketFilter
		err    error
	)
	if filter.SearchQuery, err = args.optionalString("query"); err != nil {
		return nil, err
	}
	if filter.SearchQuery != nil && *filter.SearchQuery == "" {
		filter.SearchQuery = nil
	}
	if filter.AssigneeID, err = args.optionalString("assignee_id"); err != nil {
		return nil, err
	}
	if filter.ProjectID, err = args.optionalString("project_id"); err != nil {
		return nil, err
	}
	if filter.StateType, err = args.optionalState("state"); err != nil {
		return nil, err
	}
	if filter.Priority, err = args.optionalPriority("priority"); err != nil {
		return nil, err
	}
	if filter.Labels, err = args.optionalStrings("labels"); err != nil {
		return nil, err
	}
	if filter.CustomFilters, err = args.optionalObject("custom_filters"); err != nil {
		return nil, err
	}

	tickets, err := s.app.SearchTickets(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ticketsResult(tickets), nil
}

func (s *Server) getTicket(ctx context.Context, args arguments) (any, error) {
	id, err := args.requiredString("issue_id")
	if err != nil {
		return nil, err
	}
	ticket, err := s.app.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ticket": ticket}, nil
}

func (s *Server) createTicket(ctx context.Context, args arguments) (any, error) {
	var (
		req models.CreateTicketRequest
		err error
	)
	if req.Title, err = args.requiredString("title"); err != nil {
		return nil, err
	}
	if req.Description, err = args.optionalString("description"); err != nil {
		return nil, err
	}
	if req.Priority, err = args.optionalPriority("priority"); err != nil {
		return nil, err
	}
	if req.AssigneeID, err = args.optionalString("assignee_id"); err != nil {
		return nil, err
	}
	if req.TeamID, err = args.optionalString("team_id"); err != nil {
		return nil, err
	}
	if req.ProjectID, err = args.optionalString("project_id"); err != nil {
		return nil, err
	}
	if req.LabelIDs, err = args.optionalStrings("label_ids"); err != nil {
		return nil, err
	}
	if req.DueDate, err = args.optionalDate("due_date"); err != nil {
		return nil, err
	}
	if req.Estimate, err = args.optionalNumber("estimate"); err != nil {
		return nil, err
	}
	if req.CustomFields, err = args.optionalObject("custom_fields"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ticket, err := s.app.CreateTicket(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ticket": ticket}, nil
}

func (s *Server) updateTicket(ctx context.Context, args arguments) (any, error) {
	var (
		req models.UpdateTicketRequest
		err error
	)
	if req.ID, err = args.requiredString("issue_id"); err != nil {
		return nil, err
	}
	if req.Title, err = args.optionalString("title"); err != nil {
		return nil, err
	}
	if req.Description, err = args.optionalString("description"); err != nil {
		return nil, err
	}
	if req.Priority, err = args.optionalPriority("priority"); err != nil {
		return nil, err
	}
	if req.AssigneeID, err = args.optionalString("assignee_id"); err != nil {
		return nil, err
	}
	if req.StateID, err = args.optionalString("state_id"); err != nil {
		return nil, err
	}
	if req.LabelIDs, err = args.optionalStrings("label_ids"); err != nil {
		return nil, err
	}
	if req.DueDate, err = args.optionalDate("due_date"); err != nil {
		return nil, err
	}
	if req.Estimate, err = args.optionalNumber("estimate"); err != nil {
		return nil, err
	}
	if req.CustomFields, err = args.optionalObject("custom_fields"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ticket, err := s.app.UpdateTicket(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ticket": ticket}, nil
}

func (s *Server) getUser(ctx context.Context, args arguments) (any, error) {
	id, err := args.requiredString("user_id")
	if err != nil {
		return nil, err
	}
	user, err := s.app.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": user}, nil
}

func (s *Server) listTeams(ctx context.Context, _ arguments) (any, error) {
	teams, err := s.app.GetTeams(ctx)
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []models.Team{}
	}
	return map[string]any{"teams": teams, "count": len(teams)}, nil
}

func (s *Server) getTeamMembers(ctx context.Context, args arguments) (any, error) {
	teamID, err := args.requiredString("team_id")
	if err != nil {
		return nil, err
	}
	members, err := s.app.GetTeamMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.User{}
	}
	return map[string]any{"members": members, "count": len(members)}, nil
}

func (s *Server) listLabels(ctx context.Context, _ arguments) (any, error) {
	labels, err := s.app.GetLabels(ctx)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []models.Label{}
	}
	return map[string]any{"labels": labels, "count": len(labels)}, nil
}

func (s *Server) createLabel(ctx context.Context, args arguments) (any, error) {
	var (
		req models.CreateLabelRequest
		err error
	)
	if req.Name, err = args.requiredString("name"); err != nil {
		return nil, err
	}
	if req.Color, err = args.requiredString("color"); err != nil {
		return nil, err
	}
	if req.Description, err = args.optionalString("description"); err != nil {
		return nil, err
	}
	if req.TeamID, err = args.optionalString("team_id"); err != nil {
		return nil, err
	}

	label, err := s.app.CreateLabel(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"label": label}, nil
}

func (s *Server) listProjects(ctx context.Context, _ arguments) (any, error) {
	projects, err := s.app.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return map[string]any{"projects": projects, "count": len(projects)}, nil
}

func (s *Server) getProject(ctx context.Context, args arguments) (any, error) {
	id, err := args.requiredString("project_id")
	if err != nil {
		return nil, err
	}
	project, err := s.app.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"project": project}, nil
}

func (s *Server) getProjectMilestones(ctx context.Context, args arguments) (any, error) {
	id, err := args.requiredString("project_id")
	if err != nil {
		return nil, err
	}
	milestones, err := s.app.GetProjectMilestones(ctx, id)
	if err != nil {
		return nil, err
	}
	if milestones == nil {
		milestones = []models.ProjectMilestone{}
	}
	return map[string]any{"milestones": milestones, "count": len(milestones)}, nil
}

func (s *Server) getWorkspace(ctx context.Context, _ arguments) (any, error) {
	workspace, err := s.app.GetWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"workspace": workspace}, nil
}
