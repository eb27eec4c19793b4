// Package github implements the ticket service port on top of GitHub issues
// for a single repository.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/internal/provider"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

const (
	providerName = "github"

	// perPage is the page size for list and search calls.
	perPage = 50
	// maxIssues caps how many issues a single list call collects.
	maxIssues = 250
)

func init() {
	provider.Register(providerName, func(_ context.Context, cfg provider.Config) (provider.TicketService, error) {
		return NewClient(cfg)
	})
}

// Client encapsulates the GitHub API client and the repository it serves.
type Client struct {
	client     *github.Client
	owner      string
	repo       string
	repository string
}

var _ provider.TicketService = (*Client)(nil)

// splitRepository parses "owner/repo".
func splitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperrors.Validation("GITHUB_REPOSITORY",
			fmt.Sprintf("invalid repository format: %s, expected format: owner/repo", repository))
	}
	return parts[0], parts[1], nil
}

// NewClient creates a GitHub client authenticated with a static token. A
// non-empty BaseURL selects a GitHub Enterprise API endpoint.
func NewClient(cfg provider.Config) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, apperrors.MissingField("GITHUB_TOKEN")
	}

	apiURL := cfg.BaseURL
	if apiURL == "" {
		apiURL = "https://api.github.com/"
	}
	logging.Info("github configuration",
		"api_url", apiURL,
		"repository", cfg.WorkspaceID,
		"token", logging.MaskSensitive(cfg.APIToken))

	// Create the oauth2 client
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.APIToken},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return NewClientWithHTTPClient(tc, cfg.BaseURL, cfg.WorkspaceID)
}

// NewClientWithHTTPClient creates a client for repository ("owner/repo")
// that sends requests through httpClient. An empty baseURL means github.com.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, repository string) (*Client, error) {
	owner, repo, err := splitRepository(repository)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(httpClient)

	// If not using default GitHub.com, set custom API endpoint
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			return nil, apperrors.Validation("GITHUB_DOMAIN", fmt.Sprintf("invalid github api url: %v", err))
		}
		client.BaseURL = parsedURL

		// For GitHub Enterprise, set the upload URL to the same endpoint
		client.UploadURL = parsedURL
	}

	return &Client{client: client, owner: owner, repo: repo, repository: owner + "/" + repo}, nil
}

func statusOf(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func isNotFound(resp *github.Response) bool {
	return statusOf(resp) == http.StatusNotFound
}

// classify converts a go-github failure into an application error.
func classify(op string, resp *github.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeUpstream, err, fmt.Sprintf("github %s interrupted", op))
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.Upstream(http.StatusForbidden, fmt.Sprintf("github %s: rate limit exceeded", op), err)
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return apperrors.Upstream(ghErr.Response.StatusCode, fmt.Sprintf("github %s failed: %s", op, ghErr.Message), err)
	}

	status := statusOf(resp)
	if status >= 200 && status < 300 {
		return apperrors.Wrap(apperrors.CodeDecode, err, fmt.Sprintf("github %s: malformed response", op))
	}
	return apperrors.Upstream(status, fmt.Sprintf("github %s failed", op), err)
}

// parseIssueNumber accepts "42", "#42" or "owner/repo#42". ok is false when
// the reference names another repository.
func (c *Client) parseIssueNumber(ticketID string) (number int, ok bool, err error) {
	ref := strings.TrimSpace(ticketID)
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		if repo := ref[:i]; repo != "" && !strings.EqualFold(repo, c.repository) {
			return 0, false, nil
		}
		ref = ref[i+1:]
	}
	number, err = strconv.Atoi(ref)
	if err != nil || number <= 0 {
		return 0, false, apperrors.Validation("issue_id", fmt.Sprintf("invalid github issue reference %q", ticketID))
	}
	return number, true, nil
}

// collect maps issues, skipping pull requests.
func (c *Client) collect(issues []*github.Issue) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, len(issues))
	for _, issue := range issues {
		// Skip pull requests (they're also returned by the Issues API)
		if issue.IsPullRequest() {
			continue
		}
		ticket, err := c.mapIssue(issue)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
		if len(tickets) >= maxIssues {
			break
		}
	}
	return tickets, nil
}

// GetAssignedTickets returns the repository issues assigned to the login
// userID, most recently updated first.
func (c *Client) GetAssignedTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user", userID)
	}

	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Assignee:    userID,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var allIssues []*github.Issue
	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, classify("get_assigned_tickets", resp, err)
		}

		allIssues = append(allIssues, issues...)

		if resp.NextPage == 0 {
			break
		}
		if len(allIssues) >= maxIssues {
			logging.Warn("assigned issues truncated", "user_id", userID, "limit", maxIssues)
			break
		}
		opts.Page = resp.NextPage
	}

	return c.collect(allIssues)
}

// SearchTickets runs a GitHub issue search scoped to the repository.
func (c *Client) SearchTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	query, err := buildSearchQuery(c.repository, filter)
	if err != nil {
		return nil, err
	}
	logging.Debug("github search", "query", query)

	opts := &github.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var allIssues []*github.Issue
	for {
		result, resp, err := c.client.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, classify("search_tickets", resp, err)
		}

		allIssues = append(allIssues, result.Issues...)
		if result.GetIncompleteResults() {
			logging.Warn("github search results are incomplete", "query", query)
		}

		if resp.NextPage == 0 {
			break
		}
		if len(allIssues) >= maxIssues {
			logging.Warn("search results truncated", "query", query, "total", result.GetTotal(), "limit", maxIssues)
			break
		}
		opts.Page = resp.NextPage
	}

	return c.collect(allIssues)
}

// GetTicket returns an issue by number; nil means it does not exist or is a
// pull request.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	number, ok, err := c.parseIssueNumber(ticketID)
	if err != nil || !ok {
		return nil, err
	}

	issue, resp, err := c.client.Issues.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		if isNotFound(resp) || statusOf(resp) == http.StatusGone {
			return nil, nil
		}
		return nil, classify("get_ticket", resp, err)
	}
	if issue == nil || issue.IsPullRequest() {
		return nil, nil
	}

	ticket, err := c.mapIssue(issue)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CreateTicket opens an issue. LabelIDs are label names; a priority becomes
// a "priority:<name>" label. A "milestone" custom field selects a milestone
// by number.
func (c *Client) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ProjectID != nil {
		return nil, apperrors.Validation("project_id", "github issues do not belong to projects")
	}
	if req.DueDate != nil || req.Estimate != nil {
		logging.Debug("github issues have no due date or estimate, ignoring them")
	}

	labels := append([]string{}, req.LabelIDs...)
	if req.Priority != nil {
		if label := priorityLabel(*req.Priority); label != "" {
			labels = append(labels, label)
		}
	}

	request := &github.IssueRequest{
		Title:  github.String(req.Title),
		Body:   req.Description,
		Labels: &labels,
	}
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		request.Assignees = &[]string{*req.AssigneeID}
	}
	if milestone, err := milestoneNumber(req.CustomFields); err != nil {
		return nil, err
	} else if milestone != nil {
		request.Milestone = milestone
	}

	issue, resp, err := c.client.Issues.Create(ctx, c.owner, c.repo, request)
	if err != nil {
		return nil, classify("create_ticket", resp, err)
	}

	logging.Info("created github issue", "repository", c.repository, "number", issue.GetNumber())
	ticket, err := c.mapIssue(issue)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// milestoneNumber reads the optional "milestone" custom field. Other custom
// fields have no GitHub equivalent.
func milestoneNumber(fields map[string]any) (*int, error) {
	for key, value := range fields {
		if key != "milestone" {
			return nil, apperrors.Validation("custom_fields."+key, "github issues have no such field")
		}
		switch v := value.(type) {
		case float64:
			n := int(v)
			return &n, nil
		case int:
			return &v, nil
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, apperrors.Validation("custom_fields.milestone", "milestone must be a number")
			}
			return &n, nil
		default:
			return nil, apperrors.Validation("custom_fields.milestone", "milestone must be a number")
		}
	}
	return nil, nil
}

// UpdateTicket edits an issue. StateID is "open" or "closed". A priority
// change replaces any existing priority label.
func (c *Client) UpdateTicket(ctx context.Context, req models.UpdateTicketRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	number, ok, err := c.parseIssueNumber(req.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("ticket", req.ID)
	}

	request := &github.IssueRequest{
		Title: req.Title,
		Body:  req.Description,
	}
	if req.AssigneeID != nil {
		assignees := []string{}
		if *req.AssigneeID != "" {
			assignees = append(assignees, *req.AssigneeID)
		}
		request.Assignees = &assignees
	}
	if req.StateID != nil {
		state := strings.ToLower(*req.StateID)
		if state != stateOpen && state != stateClosed {
			return nil, apperrors.Validation("state_id", `github state must be "open" or "closed"`)
		}
		request.State = &state
	}
	if milestone, err := milestoneNumber(req.CustomFields); err != nil {
		return nil, err
	} else if milestone != nil {
		request.Milestone = milestone
	}

	if req.LabelIDs != nil || req.Priority != nil {
		labels, err := c.mergeLabels(ctx, number, req.LabelIDs, req.Priority)
		if err != nil {
			return nil, err
		}
		request.Labels = &labels
	}

	issue, resp, err := c.client.Issues.Edit(ctx, c.owner, c.repo, number, request)
	if err != nil {
		if isNotFound(resp) {
			return nil, apperrors.NotFound("ticket", req.ID)
		}
		return nil, classify("update_ticket", resp, err)
	}

	ticket, err := c.mapIssue(issue)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// mergeLabels computes the label set after an update. Labels replaces the
// non-priority labels when set; priority replaces the priority label when set.
func (c *Client) mergeLabels(ctx context.Context, number int, labels []string, priority *models.Priority) ([]string, error) {
	current := labels
	if current == nil || priority == nil {
		issue, resp, err := c.client.Issues.Get(ctx, c.owner, c.repo, number)
		if err != nil {
			if isNotFound(resp) {
				return nil, apperrors.NotFound("ticket", c.identifier(number))
			}
			return nil, classify("update_ticket", resp, err)
		}
		existing := labelNames(issue.Labels)
		if current == nil {
			current = existing
		}
		if priority == nil {
			// Keep the existing priority label alongside the new labels.
			for _, label := range existing {
				if isPriorityLabel(label) {
					p := mapPriority([]string{label})
					priority = &p
				}
			}
		}
	}

	merged := make([]string, 0, len(current)+1)
	for _, label := range current {
		if !isPriorityLabel(label) {
			merged = append(merged, label)
		}
	}
	if priority != nil {
		if label := priorityLabel(*priority); label != "" {
			merged = append(merged, label)
		}
	}
	return merged, nil
}

// GetCurrentUser returns the authenticated user.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	u, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return nil, classify("get_current_user", resp, err)
	}

	user := mapUser(u)
	return &user, nil
}

// GetUser looks up a user by login; nil means it does not exist.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.MissingField("user_id")
	}
	u, resp, err := c.client.Users.Get(ctx, userID)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, classify("get_user", resp, err)
	}

	user := mapUser(u)
	return &user, nil
}

// GetTeams lists the teams of the organization owning the repository.
func (c *Client) GetTeams(ctx context.Context) ([]models.Team, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var teams []models.Team
	for {
		page, resp, err := c.client.Teams.ListTeams(ctx, c.owner, opts)
		if err != nil {
			if isNotFound(resp) {
				return nil, apperrors.Unsupported(providerName, "get_teams for repositories not owned by an organization")
			}
			return nil, classify("get_teams", resp, err)
		}
		for _, t := range page {
			teams = append(teams, mapTeam(t))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	if teams == nil {
		teams = []models.Team{}
	}
	return teams, nil
}

// GetTeamMembers lists the members of the team with slug teamID.
func (c *Client) GetTeamMembers(ctx context.Context, teamID string) ([]models.User, error) {
	opts := &github.TeamListTeamMembersOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	members := []models.User{}
	for {
		page, resp, err := c.client.Teams.ListTeamMembersBySlug(ctx, c.owner, teamID, opts)
		if err != nil {
			if isNotFound(resp) {
				return nil, apperrors.NotFound("team", teamID)
			}
			return nil, classify("get_team_members", resp, err)
		}
		for _, u := range page {
			members = append(members, mapUser(u))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return members, nil
}

// GetLabels lists the repository labels.
func (c *Client) GetLabels(ctx context.Context) ([]models.Label, error) {
	opts := &github.ListOptions{PerPage: perPage}

	labels := []models.Label{}
	for {
		page, resp, err := c.client.Issues.ListLabels(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, classify("get_labels", resp, err)
		}
		for _, l := range page {
			labels = append(labels, mapLabel(l))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return labels, nil
}

// CreateLabel adds a label to the repository. GitHub colors have no leading '#'.
func (c *Client) CreateLabel(ctx context.Context, req models.CreateLabelRequest) (*models.Label, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	label := &github.Label{
		Name:        github.String(req.Name),
		Color:       github.String(strings.TrimPrefix(req.Color, "#")),
		Description: req.Description,
	}
	created, resp, err := c.client.Issues.CreateLabel(ctx, c.owner, c.repo, label)
	if err != nil {
		if statusOf(resp) == http.StatusUnprocessableEntity {
			return nil, apperrors.Validation("name", fmt.Sprintf("label %q could not be created: %v", req.Name, err))
		}
		return nil, classify("create_label", resp, err)
	}

	result := mapLabel(created)
	return &result, nil
}

// GetProjects is not available: classic projects were removed from the REST API.
func (c *Client) GetProjects(_ context.Context) ([]models.Project, error) {
	return nil, apperrors.Unsupported(providerName, "get_projects")
}

// GetProject is not available on GitHub.
func (c *Client) GetProject(_ context.Context, _ string) (*models.Project, error) {
	return nil, apperrors.Unsupported(providerName, "get_project")
}

// GetProjectMilestones lists the repository milestones. projectID must name
// the configured repository ("owner/repo").
func (c *Client) GetProjectMilestones(ctx context.Context, projectID string) ([]models.ProjectMilestone, error) {
	if !strings.EqualFold(projectID, c.repository) {
		return nil, apperrors.NotFound("project", projectID)
	}

	opts := &github.MilestoneListOptions{
		State:       "all",
		Sort:        "due_on",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	milestones := []models.ProjectMilestone{}
	for {
		page, resp, err := c.client.Issues.ListMilestones(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, classify("get_project_milestones", resp, err)
		}
		for _, m := range page {
			milestones = append(milestones, c.mapMilestone(m))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return milestones, nil
}

// GetWorkspace describes the repository owner. Teams are included when the
// owner is an organization.
func (c *Client) GetWorkspace(ctx context.Context) (*models.Workspace, error) {
	repo, resp, err := c.client.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		if isNotFound(resp) {
			return nil, apperrors.NotFound("repository", c.repository)
		}
		return nil, classify("get_workspace", resp, err)
	}

	owner := repo.GetOwner()
	workspace := &models.Workspace{
		ID:   owner.GetLogin(),
		Name: owner.GetLogin(),
		URL:  owner.GetHTMLURL(),
		CustomFields: map[string]any{
			"repository":  repo.GetFullName(),
			"owner_type":  owner.GetType(),
			"private":     repo.GetPrivate(),
			"open_issues": repo.GetOpenIssuesCount(),
		},
	}
	if repo.Description != nil && *repo.Description != "" {
		description := *repo.Description
		workspace.Description = &description
	}

	workspace.Teams = []models.Team{}
	if owner.GetType() == "Organization" {
		teams, err := c.GetTeams(ctx)
		if err != nil {
			return nil, err
		}
		workspace.Teams = teams
	}
	return workspace, nil
}
