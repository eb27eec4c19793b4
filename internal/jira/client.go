// Package jira implements the ticket service port on top of the Jira REST API.
package jira

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/internal/provider"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

const (
	providerName = "jira"

	// pageSize is the number of issues requested per search page.
	pageSize = 50
	// maxIssues caps how many issues a single search collects.
	maxIssues = 250

	defaultIssueType = "Task"
)

func init() {
	provider.Register(providerName, func(_ context.Context, cfg provider.Config) (provider.TicketService, error) {
		return NewClient(cfg)
	})
}

// Client handles interactions with the JIRA API
type Client struct {
	client *jira.Client
}

var _ provider.TicketService = (*Client)(nil)

// NewClient creates a new JIRA client using basic auth with an API token.
func NewClient(cfg provider.Config) (*Client, error) {
	var missingVars []string
	if cfg.BaseURL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if cfg.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if cfg.APIToken == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}
	if len(missingVars) > 0 {
		return nil, apperrors.Validation(missingVars[0], fmt.Sprintf("missing required environment variables: %v", missingVars))
	}

	logging.Info("jira configuration",
		"url", cfg.BaseURL,
		"username", cfg.Username,
		"token", logging.MaskSensitive(cfg.APIToken))

	// Create JIRA authentication transport
	tp := jira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.APIToken,
	}

	return NewClientWithHTTPClient(tp.Client(), cfg.BaseURL)
}

// NewClientWithHTTPClient creates a client that sends requests through httpClient.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, apperrors.Validation("JIRA_URL", fmt.Sprintf("invalid jira url: %v", err))
	}
	return &Client{client: client}, nil
}

func statusOf(resp *jira.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func isNotFound(resp *jira.Response) bool {
	return statusOf(resp) == http.StatusNotFound
}

// classify converts a go-jira failure into an application error.
func classify(op string, resp *jira.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeUpstream, err, fmt.Sprintf("jira %s interrupted", op))
	}
	status := statusOf(resp)
	if status >= 200 && status < 300 {
		// The request succeeded but the body could not be decoded.
		return apperrors.Wrap(apperrors.CodeDecode, err, fmt.Sprintf("jira %s: malformed response", op))
	}
	return apperrors.Upstream(status, fmt.Sprintf("jira %s failed", op), err)
}

// search runs jql and collects up to maxIssues results.
func (c *Client) search(ctx context.Context, op, jql string) ([]models.Ticket, error) {
	logging.Debug("jira search", "operation", op, "jql", jql)

	var issues []jira.Issue
	for {
		page, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			StartAt:    len(issues),
			MaxResults: pageSize,
		})
		if err != nil {
			return nil, classify(op, resp, err)
		}
		issues = append(issues, page...)
		if len(page) == 0 || resp == nil || len(issues) >= resp.Total {
			break
		}
		if len(issues) >= maxIssues {
			logging.Warn("search results truncated", "operation", op, "total", resp.Total, "limit", maxIssues)
			break
		}
	}
	if len(issues) > maxIssues {
		issues = issues[:maxIssues]
	}

	tickets := make([]models.Ticket, 0, len(issues))
	for _, issue := range issues {
		ticket, err := c.mapIssue(issue)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// GetAssignedTickets returns the issues assigned to userID, most recently updated first.
func (c *Client) GetAssignedTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user", userID)
	}

	return c.search(ctx, "get_assigned_tickets", "assignee = "+quote(userID)+" "+orderByUpdated)
}

// SearchTickets returns issues matching every set field of filter.
func (c *Client) SearchTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	jql, err := buildJQL(filter)
	if err != nil {
		return nil, err
	}
	return c.search(ctx, "search_tickets", jql)
}

// GetTicket looks up an issue by id or key; nil means it does not exist.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	issue, resp, err := c.client.Issue.GetWithContext(ctx, ticketID, nil)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, classify("get_ticket", resp, err)
	}
	if issue == nil {
		return nil, nil
	}

	ticket, err := c.mapIssue(*issue)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// nativeIssueFields are issue fields set from core request fields.
var nativeIssueFields = models.NativeFieldSet(
	"summary", "description", "priority", "assignee", "labels",
	"duedate", "timetracking", "project", "issuetype", "status",
)

// estimateString renders hours as a Jira duration in minutes.
func estimateString(hours float64) string {
	return fmt.Sprintf("%dm", int(math.Round(hours*60)))
}

// CreateTicket creates an issue in the project named by ProjectID (a project
// key or id). The issue type comes from the "issue_type" custom field and
// defaults to Task.
func (c *Client) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ProjectID == nil || *req.ProjectID == "" {
		return nil, apperrors.Validation("project_id", "jira requires project_id to create an issue")
	}
	if err := models.CheckNativeFields(req.CustomFields, nativeIssueFields); err != nil {
		return nil, err
	}
	if req.TeamID != nil {
		logging.Debug("jira has no teams, ignoring team_id", "team_id", *req.TeamID)
	}

	issueType := defaultIssueType
	fields := &jira.IssueFields{
		Summary: req.Title,
		Labels:  req.LabelIDs,
	}
	if isNumeric(*req.ProjectID) {
		fields.Project = jira.Project{ID: *req.ProjectID}
	} else {
		fields.Project = jira.Project{Key: *req.ProjectID}
	}
	if req.Description != nil {
		fields.Description = *req.Description
	}
	if req.Priority != nil {
		if name := priorityToJira(*req.Priority); name != "" {
			fields.Priority = &jira.Priority{Name: name}
		}
	}
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		fields.Assignee = &jira.User{AccountID: *req.AssigneeID}
	}
	if req.Estimate != nil {
		fields.TimeTracking = &jira.TimeTracking{OriginalEstimate: estimateString(*req.Estimate)}
	}
	unknowns := map[string]interface{}{}
	if req.DueDate != nil {
		// Sent as a plain date string; the typed field does not survive field flattening.
		unknowns["duedate"] = req.DueDate.Format(time.DateOnly)
	}
	for key, value := range req.CustomFields {
		if key == "issue_type" {
			if name, ok := value.(string); ok && name != "" {
				issueType = name
			}
			continue
		}
		unknowns[key] = value
	}
	if len(unknowns) > 0 {
		fields.Unknowns = unknowns
	}
	fields.Type = jira.IssueType{Name: issueType}

	created, resp, err := c.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		return nil, classify("create_ticket", resp, err)
	}
	if created == nil || (created.ID == "" && created.Key == "") {
		return nil, apperrors.Upstream(statusOf(resp), "jira did not create the issue", nil)
	}

	logging.Info("created jira issue", "key", created.Key, "project", *req.ProjectID)
	return c.reload(ctx, valueOr(created.Key, created.ID))
}

// UpdateTicket applies the fields set on req. A StateID is treated as a
// workflow transition id and applied after the field update.
func (c *Client) UpdateTicket(ctx context.Context, req models.UpdateTicketRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := models.CheckNativeFields(req.CustomFields, nativeIssueFields); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["summary"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Priority != nil {
		if name := priorityToJira(*req.Priority); name != "" {
			fields["priority"] = map[string]string{"name": name}
		} else {
			fields["priority"] = nil
		}
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			fields["assignee"] = nil
		} else {
			fields["assignee"] = map[string]string{"accountId": *req.AssigneeID}
		}
	}
	if req.LabelIDs != nil {
		fields["labels"] = req.LabelIDs
	}
	if req.DueDate != nil {
		fields["duedate"] = req.DueDate.Format(time.DateOnly)
	}
	if req.Estimate != nil {
		fields["timetracking"] = map[string]string{"originalEstimate": estimateString(*req.Estimate)}
	}
	for key, value := range req.CustomFields {
		fields[key] = value
	}

	if len(fields) > 0 {
		resp, err := c.client.Issue.UpdateIssueWithContext(ctx, req.ID, map[string]interface{}{"fields": fields})
		if err != nil {
			if isNotFound(resp) {
				return nil, apperrors.NotFound("ticket", req.ID)
			}
			return nil, classify("update_ticket", resp, err)
		}
	}

	if req.StateID != nil && *req.StateID != "" {
		resp, err := c.client.Issue.DoTransitionWithContext(ctx, req.ID, *req.StateID)
		if err != nil {
			if isNotFound(resp) {
				return nil, apperrors.NotFound("ticket", req.ID)
			}
			if statusOf(resp) == http.StatusBadRequest {
				return nil, apperrors.Validation("state_id", fmt.Sprintf("transition %q is not available for %s", *req.StateID, req.ID))
			}
			return nil, classify("update_ticket", resp, err)
		}
	}

	return c.reload(ctx, req.ID)
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

// GetCurrentUser returns the user the credentials belong to.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	self, resp, err := c.client.User.GetSelfWithContext(ctx)
	if err != nil {
		return nil, classify("get_current_user", resp, err)
	}
	if self == nil {
		return nil, apperrors.Upstream(statusOf(resp), "jira returned no current user", nil)
	}

	user := mapUser(*self)
	return &user, nil
}

// GetUser looks up a user by account id; nil means it does not exist.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, resp, err := c.client.User.GetWithContext(ctx, userID)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, classify("get_user", resp, err)
	}
	if u == nil {
		return nil, nil
	}

	user := mapUser(*u)
	return &user, nil
}

// GetTeams is not available: Jira has no team concept in its core REST API.
func (c *Client) GetTeams(_ context.Context) ([]models.Team, error) {
	return nil, apperrors.Unsupported(providerName, "get_teams")
}

// GetTeamMembers is not available on Jira.
func (c *Client) GetTeamMembers(_ context.Context, _ string) ([]models.User, error) {
	return nil, apperrors.Unsupported(providerName, "get_team_members")
}

// GetLabels is not available: Jira labels are free-form strings without ids.
func (c *Client) GetLabels(_ context.Context) ([]models.Label, error) {
	return nil, apperrors.Unsupported(providerName, "get_labels")
}

// CreateLabel is not available on Jira.
func (c *Client) CreateLabel(_ context.Context, _ models.CreateLabelRequest) (*models.Label, error) {
	return nil, apperrors.Unsupported(providerName, "create_label")
}

// GetProjects lists the projects visible to the current user.
func (c *Client) GetProjects(ctx context.Context) ([]models.Project, error) {
	list, resp, err := c.client.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, classify("get_projects", resp, err)
	}
	if list == nil {
		return []models.Project{}, nil
	}

	projects := make([]models.Project, 0, len(*list))
	for _, p := range *list {
		projects = append(projects, mapProject(jira.Project{ID: p.ID, Key: p.Key, Name: p.Name}))
	}
	return projects, nil
}

func (c *Client) getProject(ctx context.Context, op, projectID string) (*jira.Project, error) {
	project, resp, err := c.client.Project.GetWithContext(ctx, projectID)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, classify(op, resp, err)
	}
	return project, nil
}

// GetProject looks up a project by id or key; nil means it does not exist.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	p, err := c.getProject(ctx, "get_project", projectID)
	if err != nil || p == nil {
		return nil, err
	}

	project := mapProject(*p)
	return &project, nil
}

// GetProjectMilestones returns the project's versions as milestones.
func (c *Client) GetProjectMilestones(ctx context.Context, projectID string) ([]models.ProjectMilestone, error) {
	p, err := c.getProject(ctx, "get_project_milestones", projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound("project", projectID)
	}

	milestones := make([]models.ProjectMilestone, 0, len(p.Versions))
	for _, v := range p.Versions {
		milestone := models.ProjectMilestone{
			ID:        v.ID,
			Name:      v.Name,
			ProjectID: p.ID,
		}
		if v.Description != "" {
			description := v.Description
			milestone.Description = &description
		}
		if v.ReleaseDate != "" {
			target, err := time.Parse(time.DateOnly, v.ReleaseDate)
			if err != nil {
				return nil, apperrors.Decode("releaseDate", err)
			}
			milestone.TargetDate = &target
		}
		milestones = append(milestones, milestone)
	}
	return milestones, nil
}

// GetWorkspace synthesizes a workspace from the server URL and current user.
func (c *Client) GetWorkspace(ctx context.Context) (*models.Workspace, error) {
	user, err := c.GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	base := c.client.GetBaseURL()
	description := "Jira workspace at " + base.Host
	return &models.Workspace{
		ID:          base.Host,
		Name:        fmt.Sprintf("%s's Jira Workspace", user.DisplayName),
		Description: &description,
		URL:         strings.TrimSuffix(base.String(), "/"),
		Teams:       []models.Team{},
		CustomFields: map[string]any{
			"synthesized": true,
			"account_id":  user.ID,
		},
	}, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
