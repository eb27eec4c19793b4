package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/internal/provider"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

const issueJSON = `{
	"id": 9001,
	"number": 7,
	"node_id": "I_7",
	"title": "Login is broken",
	"body": "Steps to reproduce",
	"state": "open",
	"html_url": "https://github.com/acme/api/issues/7",
	"user": {"login": "octocat"},
	"assignee": {"login": "hubot"},
	"labels": [{"name": "bug"}, {"name": "priority:high"}, {"name": "in progress"}],
	"comments": 2,
	"milestone": {"number": 3, "title": "v1.0", "due_on": "2024-05-01T00:00:00Z"},
	"created_at": "2024-01-02T10:00:00Z",
	"updated_at": "2024-01-03T10:00:00Z"
}`

type fakeResponse struct {
	status int
	body   string
}

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
}

// fakeGitHub serves canned responses keyed by "METHOD path".
type fakeGitHub struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  []recordedRequest
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.Query().Get("q"), body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	resp, ok := f.responses[r.Method+" "+r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
		return
	}
	if resp.status != 0 {
		w.WriteHeader(resp.status)
	}
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeGitHub) find(method, path string) *recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.requests {
		if f.requests[i].method == method && f.requests[i].path == path {
			return &f.requests[i]
		}
	}
	return nil
}

func newTestClient(t *testing.T, responses map[string]fakeResponse) (*Client, *fakeGitHub) {
	t.Helper()
	fake := &fakeGitHub{responses: responses}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClientWithHTTPClient(server.Client(), server.URL, "acme/api")
	require.NoError(t, err)
	return client, fake
}

func ok(body string) fakeResponse { return fakeResponse{body: body} }

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(provider.Config{WorkspaceID: "acme/api"})
	require.Error(t, err)
	assert.Equal(t, "GITHUB_TOKEN", apperrors.FieldOf(err))

	_, err = NewClient(provider.Config{APIToken: "ghp_x", WorkspaceID: "not-a-repo"})
	require.Error(t, err)
	assert.Equal(t, "GITHUB_REPOSITORY", apperrors.FieldOf(err))

	client, err := NewClient(provider.Config{APIToken: "ghp_x", WorkspaceID: "acme/api", BaseURL: "https://github.example.com/api/v3"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.example.com/api/v3/", client.client.BaseURL.String())
}

func TestGetTicket(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api/issues/7": ok(issueJSON),
	})

	for _, ref := range []string{"7", "#7", "acme/api#7"} {
		t.Run(ref, func(t *testing.T) {
			ticket, err := client.GetTicket(context.Background(), ref)
			require.NoError(t, err)
			require.NotNil(t, ticket)

			assert.Equal(t, "7", ticket.ID)
			assert.Equal(t, "acme/api#7", ticket.Identifier)
			assert.Equal(t, "Login is broken", ticket.Title)
			assert.Equal(t, models.PriorityHigh, ticket.Priority)
			assert.Equal(t, models.StateInProgress, ticket.State.Type)
			assert.Equal(t, "octocat", ticket.CreatorID)
			require.NotNil(t, ticket.AssigneeID)
			assert.Equal(t, "hubot", *ticket.AssigneeID)
			assert.Equal(t, []string{"bug", "priority:high", "in progress"}, ticket.Labels)
			require.NotNil(t, ticket.DueDate)
			assert.Equal(t, "v1.0", ticket.CustomFields["milestone"])
			assert.Equal(t, "https://github.com/acme/api/issues/7", ticket.URL)
		})
	}
}

func TestGetTicketMissing(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{})

	ticket, err := client.GetTicket(context.Background(), "99")
	require.NoError(t, err)
	assert.Nil(t, ticket)

	ticket, err = client.GetTicket(context.Background(), "other/repo#7")
	require.NoError(t, err)
	assert.Nil(t, ticket)

	_, err = client.GetTicket(context.Background(), "ENG-1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestGetTicketSkipsPullRequests(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api/issues/8": ok(`{"number": 8, "title": "PR", "state": "open", "pull_request": {"url": "https://api.github.com/repos/acme/api/pulls/8"}}`),
	})

	ticket, err := client.GetTicket(context.Background(), "8")
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestMalformedIssueIsDecodeError(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api/issues/9": ok(`{"title": "No number", "state": "open"}`),
		"GET /search/issues":           ok(`{"total_count": 2, "incomplete_results": false, "items": [` + issueJSON + `, {"title": "No number", "state": "open"}]}`),
	})

	tests := []struct {
		name string
		call func() error
	}{
		{name: "GetTicket", call: func() error {
			_, err := client.GetTicket(context.Background(), "9")
			return err
		}},
		{name: "SearchTickets", call: func() error {
			_, err := client.SearchTickets(context.Background(), models.TicketFilter{})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeDecode))
			assert.Equal(t, "number", apperrors.FieldOf(err))
		})
	}
}

// pagedSearch serves full result pages that always link to a next page.
type pagedSearch struct {
	mu    sync.Mutex
	url   string
	calls int
}

func (p *pagedSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page == 0 {
		page = 1
	}
	items := make([]string, 0, perPage)
	for i := 0; i < perPage; i++ {
		items = append(items, fmt.Sprintf(`{"number": %d, "title": "t", "state": "open"}`, (page-1)*perPage+i+1))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Link", fmt.Sprintf(`<%s/search/issues?page=%d>; rel="next"`, p.url, page+1))
	fmt.Fprintf(w, `{"total_count": 1000, "incomplete_results": false, "items": [%s]}`, strings.Join(items, ","))
}

func TestSearchTicketsStopsAtLimit(t *testing.T) {
	var logs bytes.Buffer
	logging.SetupLogger(&logs, logging.LevelWarn)
	t.Cleanup(func() { logging.SetupLogger(os.Stderr, logging.LevelInfo) })

	handler := &pagedSearch{}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	handler.url = server.URL
	client, err := NewClientWithHTTPClient(server.Client(), server.URL, "acme/api")
	require.NoError(t, err)

	tickets, err := client.SearchTickets(context.Background(), models.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, maxIssues)
	assert.Equal(t, maxIssues/perPage, handler.calls)
	assert.Contains(t, logs.String(), "search results truncated")
}

func TestGetAssignedTickets(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"GET /users/hubot":          ok(`{"login": "hubot", "id": 2}`),
		"GET /repos/acme/api/issues": ok(`[` + issueJSON + `, {"number": 8, "state": "open", "pull_request": {}}]`),
	})

	tickets, err := client.GetAssignedTickets(context.Background(), "hubot")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "acme/api#7", tickets[0].Identifier)

	_, err = client.GetAssignedTickets(context.Background(), "ghost")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.NotNil(t, fake.find(http.MethodGet, "/users/ghost"))
}

func TestSearchTickets(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"GET /search/issues": ok(`{"total_count": 1, "incomplete_results": false, "items": [` + issueJSON + `]}`),
	})

	assignee := "hubot"
	query := "login"
	tickets, err := client.SearchTickets(context.Background(), models.TicketFilter{
		AssigneeID:  &assignee,
		Labels:      []string{"bug"},
		SearchQuery: &query,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	search := fake.find(http.MethodGet, "/search/issues")
	require.NotNil(t, search)
	assert.Equal(t, "repo:acme/api is:issue assignee:hubot label:bug login", search.query)
}

func TestSearchTicketsRejectsProjectFilter(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{})

	project := "p1"
	_, err := client.SearchTickets(context.Background(), models.TicketFilter{ProjectID: &project})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedFilter))
	assert.Equal(t, "project_id", apperrors.FieldOf(err))
	assert.Empty(t, fake.requests)
}

func TestCreateTicket(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"POST /repos/acme/api/issues": {status: http.StatusCreated, body: issueJSON},
	})

	high := models.PriorityHigh
	assignee := "hubot"
	ticket, err := client.CreateTicket(context.Background(), models.CreateTicketRequest{
		Title:        "Login is broken",
		Priority:     &high,
		AssigneeID:   &assignee,
		LabelIDs:     []string{"bug"},
		CustomFields: map[string]any{"milestone": float64(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, "acme/api#7", ticket.Identifier)

	create := fake.find(http.MethodPost, "/repos/acme/api/issues")
	require.NotNil(t, create)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(create.body), &payload))
	assert.Equal(t, "Login is broken", payload["title"])
	assert.Equal(t, []any{"bug", "priority:high"}, payload["labels"])
	assert.Equal(t, []any{"hubot"}, payload["assignees"])
	assert.Equal(t, float64(3), payload["milestone"])
}

func TestCreateTicketRejectsUnknownCustomField(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{})

	_, err := client.CreateTicket(context.Background(), models.CreateTicketRequest{
		Title:        "x",
		CustomFields: map[string]any{"story_points": 3},
	})
	require.Error(t, err)
	assert.Equal(t, "custom_fields.story_points", apperrors.FieldOf(err))
	assert.Empty(t, fake.requests)
}

func TestUpdateTicketReplacesPriorityLabel(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api/issues/7":   ok(issueJSON),
		"PATCH /repos/acme/api/issues/7": ok(issueJSON),
	})

	low := models.PriorityLow
	closed := "closed"
	_, err := client.UpdateTicket(context.Background(), models.UpdateTicketRequest{
		ID:       "acme/api#7",
		Priority: &low,
		StateID:  &closed,
	})
	require.NoError(t, err)

	edit := fake.find(http.MethodPatch, "/repos/acme/api/issues/7")
	require.NotNil(t, edit)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(edit.body), &payload))
	assert.Equal(t, []any{"bug", "in progress", "priority:low"}, payload["labels"])
	assert.Equal(t, "closed", payload["state"])
	_, hasTitle := payload["title"]
	assert.False(t, hasTitle)
}

func TestUpdateTicketRejectsUnknownState(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{})

	state := "merged"
	_, err := client.UpdateTicket(context.Background(), models.UpdateTicketRequest{ID: "7", StateID: &state})
	require.Error(t, err)
	assert.Equal(t, "state_id", apperrors.FieldOf(err))
}

func TestLabels(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api/labels":  ok(`[{"id": 1, "name": "bug", "color": "d73a4a", "description": "Something is broken"}]`),
		"POST /repos/acme/api/labels": {status: http.StatusCreated, body: `{"id": 2, "name": "triage", "color": "ededed"}`},
	})

	labels, err := client.GetLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "1", labels[0].ID)
	assert.Equal(t, "#d73a4a", labels[0].Color)
	require.NotNil(t, labels[0].Description)

	label, err := client.CreateLabel(context.Background(), models.CreateLabelRequest{Name: "triage", Color: "#ededed"})
	require.NoError(t, err)
	assert.Equal(t, "triage", label.Name)

	create := fake.find(http.MethodPost, "/repos/acme/api/labels")
	require.NotNil(t, create)
	assert.Contains(t, create.body, `"color":"ededed"`)
}

func TestMilestones(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api/milestones": ok(`[{"number": 3, "title": "v1.0", "description": "First release", "due_on": "2024-05-01T00:00:00Z"}]`),
	})

	milestones, err := client.GetProjectMilestones(context.Background(), "acme/api")
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	assert.Equal(t, "3", milestones[0].ID)
	assert.Equal(t, "acme/api", milestones[0].ProjectID)
	require.NotNil(t, milestones[0].TargetDate)

	_, err = client.GetProjectMilestones(context.Background(), "other/repo")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestTeams(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /orgs/acme/teams":                 ok(`[{"id": 10, "name": "Platform", "slug": "platform", "privacy": "closed"}]`),
		"GET /orgs/acme/teams/platform/members": ok(`[{"login": "hubot", "id": 2}]`),
	})

	teams, err := client.GetTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "platform", teams[0].Key)

	members, err := client.GetTeamMembers(context.Background(), "platform")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "hubot", members[0].ID)

	_, err = client.GetTeamMembers(context.Background(), "ghosts")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestGetWorkspace(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api": ok(`{
			"full_name": "acme/api",
			"description": "Public API",
			"owner": {"login": "acme", "type": "User", "html_url": "https://github.com/acme"}
		}`),
	})

	workspace, err := client.GetWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme", workspace.ID)
	assert.Equal(t, "https://github.com/acme", workspace.URL)
	assert.Empty(t, workspace.Teams)
	assert.Equal(t, "acme/api", workspace.CustomFields["repository"])
}

func TestProjectsUnsupported(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{})

	_, err := client.GetProjects(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedOperation))
	_, err = client.GetProject(context.Background(), "1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedOperation))
}

func TestServerErrorIsUpstream(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /repos/acme/api/labels": {status: http.StatusBadGateway, body: `{"message": "bad gateway"}`},
	})

	_, err := client.GetLabels(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))
	assert.Equal(t, http.StatusBadGateway, apperrors.StatusOf(err))
}
