// Package linear implements the ticket service port on top of Linear's GraphQL API.
package linear

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/internal/provider"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

const (
	providerName = "linear"

	// pageSize is the number of issues requested per page.
	pageSize = 50
	// maxIssues caps how many issues a single list call collects.
	maxIssues = 250

	defaultTimeout = 30 * time.Second

	workspaceURL = "https://linear.app"
)

// nativeInputFields are issue input keys filled from core request fields.
// Custom fields may not set them.
var nativeInputFields = models.NativeFieldSet(
	"title", "description", "priority", "assigneeId", "teamId",
	"projectId", "labelIds", "stateId", "dueDate", "estimate",
)

func init() {
	provider.Register(providerName, func(_ context.Context, cfg provider.Config) (provider.TicketService, error) {
		return NewClient(cfg)
	})
}

// Client implements provider.TicketService for Linear.
type Client struct {
	transport Transport
}

var _ provider.TicketService = (*Client)(nil)

// NewClient creates a Linear client from provider configuration.
func NewClient(cfg provider.Config) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, apperrors.MissingField("LINEAR_API_TOKEN")
	}
	if cfg.BaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
			return nil, apperrors.Validation("LINEAR_API_URL", fmt.Sprintf("invalid linear api url: %v", err))
		}
	}

	logging.Info("linear configuration",
		"api_url", valueOr(cfg.BaseURL, DefaultAPIURL),
		"token", logging.MaskSensitive(cfg.APIToken))

	return NewClientWithTransport(NewHTTPTransport(cfg.BaseURL, cfg.APIToken, defaultTimeout)), nil
}

// NewClientWithTransport creates a client around an existing transport.
func NewClientWithTransport(transport Transport) *Client {
	return &Client{transport: transport}
}

// do runs a GraphQL operation and classifies transport failures.
func (c *Client) do(ctx context.Context, op, query string, variables map[string]any, out any) error {
	err := c.transport.Do(ctx, query, variables, out)
	if err == nil {
		return nil
	}
	return classify(op, err)
}

func classify(op string, err error) error {
	var statusErr *StatusError
	var gqlErrs GraphQLErrors
	switch {
	case errors.As(err, &statusErr):
		return apperrors.Upstream(statusErr.StatusCode, fmt.Sprintf("linear %s failed", op), err)
	case errors.As(err, &gqlErrs):
		return apperrors.Upstream(0, fmt.Sprintf("linear %s returned errors", op), err)
	case errors.Is(err, ErrMalformedResponse):
		return apperrors.Wrap(apperrors.CodeDecode, err, fmt.Sprintf("linear %s: malformed response", op))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.CodeUpstream, err, fmt.Sprintf("linear %s interrupted", op))
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Upstream(0, fmt.Sprintf("linear %s failed", op), err)
}

// isNotFound reports whether a GraphQL failure means the entity is missing.
func isNotFound(err error) bool {
	var gqlErrs GraphQLErrors
	return errors.As(err, &gqlErrs) && gqlErrs.IsNotFound()
}

// GetAssignedTickets returns the issues assigned to userID, most recently updated first.
func (c *Client) GetAssignedTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	var nodes []issueNode
	after := ""
	for {
		var resp struct {
			User *struct {
				ID             string `json:"id"`
				AssignedIssues struct {
					Nodes    []issueNode `json:"nodes"`
					PageInfo pageInfo    `json:"pageInfo"`
				} `json:"assignedIssues"`
			} `json:"user"`
		}
		vars := map[string]any{"userId": userID, "first": pageSize}
		if after != "" {
			vars["after"] = after
		}
		if err := c.transport.Do(ctx, assignedIssuesQuery, vars, &resp); err != nil {
			if isNotFound(err) {
				return nil, apperrors.NotFound("user", userID)
			}
			return nil, classify("get_assigned_tickets", err)
		}
		if resp.User == nil {
			return nil, apperrors.NotFound("user", userID)
		}

		nodes = append(nodes, resp.User.AssignedIssues.Nodes...)
		page := resp.User.AssignedIssues.PageInfo
		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		if len(nodes) >= maxIssues {
			logging.Warn("assigned issues truncated", "user_id", userID, "limit", maxIssues)
			break
		}
		after = page.EndCursor
	}

	return mapIssues(nodes)
}

// SearchTickets returns issues matching every set field of filter.
func (c *Client) SearchTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	issueFilter, err := buildIssueFilter(filter)
	if err != nil {
		return nil, err
	}

	var nodes []issueNode
	after := ""
	for {
		var resp struct {
			Issues struct {
				Nodes    []issueNode `json:"nodes"`
				PageInfo pageInfo    `json:"pageInfo"`
			} `json:"issues"`
		}
		vars := map[string]any{"first": pageSize}
		if issueFilter != nil {
			vars["filter"] = issueFilter
		}
		if after != "" {
			vars["after"] = after
		}
		if err := c.do(ctx, "search_tickets", issuesQuery, vars, &resp); err != nil {
			return nil, err
		}

		nodes = append(nodes, resp.Issues.Nodes...)
		if !resp.Issues.PageInfo.HasNextPage || resp.Issues.PageInfo.EndCursor == "" {
			break
		}
		if len(nodes) >= maxIssues {
			logging.Warn("search results truncated", "limit", maxIssues)
			break
		}
		after = resp.Issues.PageInfo.EndCursor
	}

	return mapIssues(nodes)
}

// GetTicket looks up an issue by id or identifier; nil means it does not exist.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var resp struct {
		Issue *issueNode `json:"issue"`
	}
	if err := c.transport.Do(ctx, issueQuery, map[string]any{"id": ticketID}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("get_ticket", err)
	}
	if resp.Issue == nil {
		return nil, nil
	}

	ticket, err := mapIssue(*resp.Issue)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CreateTicket creates an issue and returns it as stored by Linear.
// Linear requires a team, so TeamID is mandatory here.
func (c *Client) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.TeamID == nil || *req.TeamID == "" {
		return nil, apperrors.Validation("team_id", "linear requires team_id to create an issue")
	}
	if err := models.CheckNativeFields(req.CustomFields, nativeInputFields); err != nil {
		return nil, err
	}

	input := map[string]any{
		"title":  req.Title,
		"teamId": *req.TeamID,
	}
	if req.Description != nil {
		input["description"] = *req.Description
	}
	if req.Priority != nil {
		input["priority"] = priorityToLinear(*req.Priority)
	}
	if req.AssigneeID != nil {
		input["assigneeId"] = *req.AssigneeID
	}
	if req.ProjectID != nil {
		input["projectId"] = *req.ProjectID
	}
	if len(req.LabelIDs) > 0 {
		input["labelIds"] = req.LabelIDs
	}
	if req.DueDate != nil {
		input["dueDate"] = req.DueDate.Format(time.DateOnly)
	}
	if req.Estimate != nil {
		input["estimate"] = int(*req.Estimate)
	}
	for key, value := range req.CustomFields {
		input[key] = value
	}

	var resp struct {
		IssueCreate struct {
			Success bool     `json:"success"`
			Issue   *nodeRef `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := c.do(ctx, "create_ticket", issueCreateMutation, map[string]any{"input": input}, &resp); err != nil {
		return nil, err
	}
	if !resp.IssueCreate.Success || resp.IssueCreate.Issue == nil {
		return nil, apperrors.Upstream(0, "linear did not create the issue", nil)
	}

	return c.reload(ctx, resp.IssueCreate.Issue.ID)
}

// UpdateTicket applies the fields set on req and returns the updated issue.
func (c *Client) UpdateTicket(ctx context.Context, req models.UpdateTicketRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := models.CheckNativeFields(req.CustomFields, nativeInputFields); err != nil {
		return nil, err
	}

	input := map[string]any{}
	if req.Title != nil {
		input["title"] = *req.Title
	}
	if req.Description != nil {
		input["description"] = *req.Description
	}
	if req.Priority != nil {
		input["priority"] = priorityToLinear(*req.Priority)
	}
	if req.AssigneeID != nil {
		input["assigneeId"] = *req.AssigneeID
	}
	if req.StateID != nil {
		input["stateId"] = *req.StateID
	}
	if req.LabelIDs != nil {
		input["labelIds"] = req.LabelIDs
	}
	if req.DueDate != nil {
		input["dueDate"] = req.DueDate.Format(time.DateOnly)
	}
	if req.Estimate != nil {
		input["estimate"] = int(*req.Estimate)
	}
	for key, value := range req.CustomFields {
		input[key] = value
	}

	if len(input) == 0 {
		return c.reload(ctx, req.ID)
	}

	var resp struct {
		IssueUpdate struct {
			Success bool     `json:"success"`
			Issue   *nodeRef `json:"issue"`
		} `json:"issueUpdate"`
	}
	err := c.transport.Do(ctx, issueUpdateMutation, map[string]any{"id": req.ID, "input": input}, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("ticket", req.ID)
		}
		return nil, classify("update_ticket", err)
	}
	if !resp.IssueUpdate.Success {
		return nil, apperrors.Upstream(0, "linear did not update the issue", nil)
	}

	id := req.ID
	if resp.IssueUpdate.Issue != nil {
		id = resp.IssueUpdate.Issue.ID
	}
	return c.reload(ctx, id)
}

func (c *Client) reload(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := c.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NotFound("ticket", id)
	}
	return ticket, nil
}

// GetCurrentUser returns the user the API token belongs to.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var resp struct {
		Viewer *userNode `json:"viewer"`
	}
	if err := c.do(ctx, "get_current_user", viewerQuery, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Viewer == nil {
		return nil, apperrors.Decode("viewer", errors.New("viewer missing from response"))
	}
	user := mapUser(*resp.Viewer)
	return &user, nil
}

// GetUser looks up a user by id; nil means it does not exist.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var resp struct {
		User *userNode `json:"user"`
	}
	if err := c.transport.Do(ctx, userQuery, map[string]any{"id": userID}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("get_user", err)
	}
	if resp.User == nil {
		return nil, nil
	}
	user := mapUser(*resp.User)
	return &user, nil
}

// GetTeams returns every team visible to the token, with members.
func (c *Client) GetTeams(ctx context.Context) ([]models.Team, error) {
	var resp struct {
		Teams struct {
			Nodes []teamNode `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, "get_teams", teamsQuery, nil, &resp); err != nil {
		return nil, err
	}

	teams := make([]models.Team, 0, len(resp.Teams.Nodes))
	for _, node := range resp.Teams.Nodes {
		teams = append(teams, mapTeam(node))
	}
	return teams, nil
}

// GetTeamMembers returns the members of a team.
func (c *Client) GetTeamMembers(ctx context.Context, teamID string) ([]models.User, error) {
	var resp struct {
		Team *teamNode `json:"team"`
	}
	if err := c.transport.Do(ctx, teamMembersQuery, map[string]any{"id": teamID}, &resp); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("team", teamID)
		}
		return nil, classify("get_team_members", err)
	}
	if resp.Team == nil {
		return nil, apperrors.NotFound("team", teamID)
	}
	return mapTeam(*resp.Team).Members, nil
}

// GetLabels returns the workspace's issue labels.
func (c *Client) GetLabels(ctx context.Context) ([]models.Label, error) {
	var resp struct {
		IssueLabels struct {
			Nodes []labelNode `json:"nodes"`
		} `json:"issueLabels"`
	}
	if err := c.do(ctx, "get_labels", labelsQuery, nil, &resp); err != nil {
		return nil, err
	}

	labels := make([]models.Label, 0, len(resp.IssueLabels.Nodes))
	for _, node := range resp.IssueLabels.Nodes {
		labels = append(labels, mapLabel(node))
	}
	return labels, nil
}

// CreateLabel creates an issue label, scoped to a team when TeamID is set.
func (c *Client) CreateLabel(ctx context.Context, req models.CreateLabelRequest) (*models.Label, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	input := map[string]any{"name": req.Name, "color": req.Color}
	if req.Description != nil {
		input["description"] = *req.Description
	}
	if req.TeamID != nil {
		input["teamId"] = *req.TeamID
	}

	var resp struct {
		IssueLabelCreate struct {
			Success    bool       `json:"success"`
			IssueLabel *labelNode `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	if err := c.do(ctx, "create_label", labelCreateMutation, map[string]any{"input": input}, &resp); err != nil {
		return nil, err
	}
	if !resp.IssueLabelCreate.Success || resp.IssueLabelCreate.IssueLabel == nil {
		return nil, apperrors.Upstream(0, "linear did not create the label", nil)
	}

	label := mapLabel(*resp.IssueLabelCreate.IssueLabel)
	return &label, nil
}

// GetProjects returns the workspace's projects.
func (c *Client) GetProjects(ctx context.Context) ([]models.Project, error) {
	var resp struct {
		Projects struct {
			Nodes []projectNode `json:"nodes"`
		} `json:"projects"`
	}
	if err := c.do(ctx, "get_projects", projectsQuery, nil, &resp); err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(resp.Projects.Nodes))
	for _, node := range resp.Projects.Nodes {
		project, err := mapProject(node)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

// GetProject looks up a project by id; nil means it does not exist.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var resp struct {
		Project *projectNode `json:"project"`
	}
	if err := c.transport.Do(ctx, projectQuery, map[string]any{"id": projectID}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("get_project", err)
	}
	if resp.Project == nil {
		return nil, nil
	}

	project, err := mapProject(*resp.Project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjectMilestones returns the milestones of a project.
func (c *Client) GetProjectMilestones(ctx context.Context, projectID string) ([]models.ProjectMilestone, error) {
	var resp struct {
		Project *struct {
			ID                string `json:"id"`
			ProjectMilestones struct {
				Nodes []milestoneNode `json:"nodes"`
			} `json:"projectMilestones"`
		} `json:"project"`
	}
	if err := c.transport.Do(ctx, projectMilestonesQuery, map[string]any{"id": projectID}, &resp); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("project", projectID)
		}
		return nil, classify("get_project_milestones", err)
	}
	if resp.Project == nil {
		return nil, apperrors.NotFound("project", projectID)
	}

	milestones := make([]models.ProjectMilestone, 0, len(resp.Project.ProjectMilestones.Nodes))
	for _, node := range resp.Project.ProjectMilestones.Nodes {
		milestone, err := mapMilestone(projectID, node)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, milestone)
	}
	return milestones, nil
}

// GetWorkspace describes the Linear organization. When the token cannot read
// the organization, a workspace is synthesized from the viewer and teams.
func (c *Client) GetWorkspace(ctx context.Context) (*models.Workspace, error) {
	teams, err := c.GetTeams(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Organization *struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			URLKey string `json:"urlKey"`
		} `json:"organization"`
	}
	orgErr := c.transport.Do(ctx, organizationQuery, nil, &resp)
	if orgErr == nil && resp.Organization != nil {
		return &models.Workspace{
			ID:           resp.Organization.ID,
			Name:         resp.Organization.Name,
			URL:          workspaceURL + "/" + resp.Organization.URLKey,
			Teams:        teams,
			CustomFields: map[string]any{"url_key": resp.Organization.URLKey},
		}, nil
	}
	if orgErr != nil {
		var gqlErrs GraphQLErrors
		if !errors.As(orgErr, &gqlErrs) {
			return nil, classify("get_workspace", orgErr)
		}
		logging.Debug("linear organization unavailable, synthesizing workspace", "error", orgErr)
	}

	user, err := c.GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	description := "Linear workspace for " + user.Email
	return &models.Workspace{
		ID:           "linear-workspace",
		Name:         fmt.Sprintf("%s's Linear Workspace", user.Name),
		Description:  &description,
		URL:          workspaceURL,
		Teams:        teams,
		CustomFields: map[string]any{"synthesized": true},
	}, nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
