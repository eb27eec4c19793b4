package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
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
	"id": "10001",
	"key": "ENG-1",
	"fields": {
		"summary": "Fix login",
		"description": "Users cannot log in",
		"priority": {"id": "2", "name": "Major"},
		"status": {"id": "3", "name": "In Review", "statusCategory": {"id": 4, "key": "indeterminate", "name": "In Progress"}},
		"assignee": {"accountId": "acc-1", "displayName": "Ada"},
		"creator": {"accountId": "acc-2"},
		"reporter": {"accountId": "acc-3"},
		"project": {"id": "100", "key": "ENG", "name": "Engineering"},
		"issuetype": {"name": "Bug"},
		"labels": ["backend", "auth"],
		"created": "2024-01-02T10:00:00.000+0000",
		"updated": "2024-01-03T10:00:00.000+0000",
		"duedate": "2024-02-01",
		"timeestimate": 5400,
		"customfield_10010": "sprint-7"
	}
}`

// fakeJira records requests and serves canned responses keyed by "METHOD path".
type fakeJira struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  []recordedRequest
}

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

func (f *fakeJira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
	f.mu.Unlock()

	resp, ok := f.responses[r.Method+" "+r.URL.Path]
	if !ok {
		http.Error(w, `{"errorMessages":["unexpected request"]}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if resp.status != 0 {
		w.WriteHeader(resp.status)
	}
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeJira) find(method, path string) *recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.requests {
		if f.requests[i].method == method && f.requests[i].path == path {
			return &f.requests[i]
		}
	}
	return nil
}

func newTestClient(t *testing.T, responses map[string]fakeResponse) (*Client, *fakeJira) {
	t.Helper()
	fake := &fakeJira{responses: responses}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClientWithHTTPClient(server.Client(), server.URL)
	require.NoError(t, err)
	return client, fake
}

func ok(body string) fakeResponse { return fakeResponse{body: body} }

func TestNewClientRequiresCredentials(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       provider.Config
		wantField string
	}{
		{name: "Missing URL", cfg: provider.Config{Username: "u", APIToken: "t"}, wantField: "JIRA_URL"},
		{name: "Missing username", cfg: provider.Config{BaseURL: "https://example.atlassian.net", APIToken: "t"}, wantField: "JIRA_USERNAME"},
		{name: "Missing token", cfg: provider.Config{BaseURL: "https://example.atlassian.net", Username: "u"}, wantField: "JIRA_TOKEN"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.cfg)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
			assert.Equal(t, tc.wantField, apperrors.FieldOf(err))
		})
	}

	client, err := NewClient(provider.Config{BaseURL: "https://example.atlassian.net", Username: "u", APIToken: "t"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestGetTicket(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /rest/api/2/issue/ENG-1": ok(issueJSON),
	})

	ticket, err := client.GetTicket(context.Background(), "ENG-1")
	require.NoError(t, err)
	require.NotNil(t, ticket)

	assert.Equal(t, "10001", ticket.ID)
	assert.Equal(t, "ENG-1", ticket.Identifier)
	assert.Equal(t, "Fix login", ticket.Title)
	require.NotNil(t, ticket.Description)
	assert.Equal(t, "Users cannot log in", *ticket.Description)
	assert.Equal(t, models.PriorityHigh, ticket.Priority)
	assert.Equal(t, models.StateInProgress, ticket.State.Type)
	assert.Equal(t, "In Review", ticket.State.Name)
	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, "acc-1", *ticket.AssigneeID)
	assert.Equal(t, "acc-2", ticket.CreatorID)
	require.NotNil(t, ticket.ProjectID)
	assert.Equal(t, "ENG", *ticket.ProjectID)
	assert.Equal(t, []string{"backend", "auth"}, ticket.Labels)
	require.NotNil(t, ticket.DueDate)
	assert.Equal(t, "2024-02-01", ticket.DueDate.Format("2006-01-02"))
	require.NotNil(t, ticket.Estimate)
	assert.InDelta(t, 1.5, *ticket.Estimate, 0.0001)
	assert.True(t, ticket.UpdatedAt.After(ticket.CreatedAt))
	assert.Contains(t, ticket.URL, "/browse/ENG-1")
	assert.Equal(t, "Bug", ticket.CustomFields["issue_type"])
	assert.Equal(t, "acc-3", ticket.CustomFields["reporter_id"])
	assert.Equal(t, "sprint-7", ticket.CustomFields["customfield_10010"])
}

func TestGetTicketNotFoundReturnsNil(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{})

	ticket, err := client.GetTicket(context.Background(), "ENG-404")
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestGetTicketServerError(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /rest/api/2/issue/ENG-1": {status: http.StatusInternalServerError, body: `{"errorMessages":["boom"]}`},
	})

	_, err := client.GetTicket(context.Background(), "ENG-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
}

func TestGetAssignedTickets(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"GET /rest/api/2/user":   ok(`{"accountId": "acc-1", "displayName": "Ada", "active": true}`),
		"GET /rest/api/2/search": ok(`{"startAt": 0, "maxResults": 50, "total": 1, "issues": [` + issueJSON + `]}`),
	})

	tickets, err := client.GetAssignedTickets(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "ENG-1", tickets[0].Identifier)

	search := fake.find(http.MethodGet, "/rest/api/2/search")
	require.NotNil(t, search)
	assert.Contains(t, search.query, "jql=assignee+%3D+%22acc-1%22+ORDER+BY+updated+DESC")
}

func TestGetAssignedTicketsUnknownUser(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{})

	_, err := client.GetAssignedTickets(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Nil(t, fake.find(http.MethodGet, "/rest/api/2/search"))
}

func TestSearchTicketsUnsupportedFilter(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{})

	_, err := client.SearchTickets(context.Background(), models.TicketFilter{
		CustomFilters: map[string]any{"watchers": "me"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedFilter))
	assert.Equal(t, "watchers", apperrors.FieldOf(err))
	assert.Empty(t, fake.requests)
}

func TestCreateTicket(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"POST /rest/api/2/issue":      {status: http.StatusCreated, body: `{"id": "10001", "key": "ENG-1"}`},
		"GET /rest/api/2/issue/ENG-1": ok(issueJSON),
	})

	high := models.PriorityHigh
	project := "ENG"
	ticket, err := client.CreateTicket(context.Background(), models.CreateTicketRequest{
		Title:        "Fix login",
		ProjectID:    &project,
		Priority:     &high,
		LabelIDs:     []string{"backend"},
		CustomFields: map[string]any{"issue_type": "Bug", "customfield_10010": "sprint-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ENG-1", ticket.Identifier)

	create := fake.find(http.MethodPost, "/rest/api/2/issue")
	require.NotNil(t, create)
	var payload struct {
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(create.body), &payload))
	assert.Equal(t, "Fix login", payload.Fields["summary"])
	assert.Equal(t, "sprint-7", payload.Fields["customfield_10010"])
	assert.Equal(t, "Bug", payload.Fields["issuetype"].(map[string]any)["name"])
	assert.Equal(t, "ENG", payload.Fields["project"].(map[string]any)["key"])
	assert.Equal(t, "High", payload.Fields["priority"].(map[string]any)["name"])
}

func TestCreateTicketRequiresProject(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{})

	_, err := client.CreateTicket(context.Background(), models.CreateTicketRequest{Title: "No project"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Equal(t, "project_id", apperrors.FieldOf(err))
	assert.Empty(t, fake.requests)
}

func TestWritesRejectNativeCustomFields(t *testing.T) {
	project := "ENG"
	for _, key := range []string{"summary", "assignee", "status", "Labels"} {
		t.Run(key, func(t *testing.T) {
			client, fake := newTestClient(t, map[string]fakeResponse{})
			custom := map[string]any{key: "x", "customfield_10010": "sprint-7"}

			_, err := client.CreateTicket(context.Background(), models.CreateTicketRequest{
				Title:        "Fix login",
				ProjectID:    &project,
				CustomFields: custom,
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
			assert.Equal(t, "custom_fields."+key, apperrors.FieldOf(err))

			_, err = client.UpdateTicket(context.Background(), models.UpdateTicketRequest{
				ID:           "ENG-1",
				CustomFields: custom,
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
			assert.Equal(t, "custom_fields."+key, apperrors.FieldOf(err))

			assert.Empty(t, fake.requests)
		})
	}
}

func TestGetTicketRejectsMalformedIssue(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "Missing id", body: `{"key": "ENG-9", "fields": {"summary": "x"}}`, wantField: "id"},
		{name: "Missing key", body: `{"id": "10009", "fields": {"summary": "x"}}`, wantField: "key"},
		{name: "Bad timestamp", body: strings.Replace(issueJSON, "2024-01-02T10:00:00.000+0000", "not-a-date", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, map[string]fakeResponse{
				"GET /rest/api/2/issue/ENG-9": ok(tt.body),
			})

			ticket, err := client.GetTicket(context.Background(), "ENG-9")
			require.Error(t, err)
			assert.Nil(t, ticket)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeDecode))
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, apperrors.FieldOf(err))
			}
		})
	}
}

func TestSearchRejectsIssueWithoutKey(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /rest/api/2/search": ok(`{"startAt": 0, "maxResults": 50, "total": 2, "issues": [` + issueJSON + `, {"id": "10002"}]}`),
	})

	_, err := client.SearchTickets(context.Background(), models.TicketFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDecode))
	assert.Equal(t, "key", apperrors.FieldOf(err))
}

// pagedSearch serves full pages of distinct issues out of a large total.
type pagedSearch struct {
	mu    sync.Mutex
	calls int
}

func (p *pagedSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	var startAt int
	_, _ = fmt.Sscanf(r.URL.Query().Get("startAt"), "%d", &startAt)
	issues := make([]string, 0, pageSize)
	for i := startAt; i < startAt+pageSize; i++ {
		issues = append(issues, fmt.Sprintf(`{"id": "%d", "key": "ENG-%d", "fields": {"summary": "t"}}`, 20000+i, i+1))
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"startAt": %d, "maxResults": %d, "total": 1000, "issues": [%s]}`, startAt, pageSize, strings.Join(issues, ","))
}

func TestSearchTicketsStopsAtLimit(t *testing.T) {
	var logs bytes.Buffer
	logging.SetupLogger(&logs, logging.LevelWarn)
	t.Cleanup(func() { logging.SetupLogger(os.Stderr, logging.LevelInfo) })

	handler := &pagedSearch{}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClientWithHTTPClient(server.Client(), server.URL)
	require.NoError(t, err)

	tickets, err := client.SearchTickets(context.Background(), models.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, maxIssues)
	assert.Equal(t, maxIssues/pageSize, handler.calls)
	assert.Contains(t, logs.String(), "search results truncated")
}

func TestUpdateTicketSendsOnlySetFields(t *testing.T) {
	client, fake := newTestClient(t, map[string]fakeResponse{
		"PUT /rest/api/2/issue/ENG-1":              {status: http.StatusNoContent},
		"POST /rest/api/2/issue/ENG-1/transitions": {status: http.StatusNoContent},
		"GET /rest/api/2/issue/ENG-1":              ok(issueJSON),
	})

	title := "Renamed"
	unassign := ""
	transition := "31"
	_, err := client.UpdateTicket(context.Background(), models.UpdateTicketRequest{
		ID:         "ENG-1",
		Title:      &title,
		AssigneeID: &unassign,
		StateID:    &transition,
	})
	require.NoError(t, err)

	update := fake.find(http.MethodPut, "/rest/api/2/issue/ENG-1")
	require.NotNil(t, update)
	var payload struct {
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(update.body), &payload))
	assert.Len(t, payload.Fields, 2)
	assert.Equal(t, "Renamed", payload.Fields["summary"])
	assigneeValue, present := payload.Fields["assignee"]
	assert.True(t, present)
	assert.Nil(t, assigneeValue)

	transitionReq := fake.find(http.MethodPost, "/rest/api/2/issue/ENG-1/transitions")
	require.NotNil(t, transitionReq)
	assert.Contains(t, transitionReq.body, `"31"`)
}

func TestUpdateTicketMissingIssue(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{})

	title := "Renamed"
	_, err := client.UpdateTicket(context.Background(), models.UpdateTicketRequest{ID: "ENG-404", Title: &title})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestUsers(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /rest/api/2/myself": ok(`{
			"accountId": "acc-1",
			"emailAddress": "ada@example.com",
			"displayName": "Ada Lovelace",
			"active": true,
			"timeZone": "Europe/London",
			"avatarUrls": {"48x48": "https://avatars.example.com/ada.png"}
		}`),
	})

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", user.ID)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.Active)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, "https://avatars.example.com/ada.png", *user.AvatarURL)
	assert.Equal(t, "Europe/London", user.CustomFields["timezone"])

	missing, err := client.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProjectsAndMilestones(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /rest/api/2/project": ok(`[{"id": "100", "key": "ENG", "name": "Engineering"}]`),
		"GET /rest/api/2/project/ENG": ok(`{
			"id": "100",
			"key": "ENG",
			"name": "Engineering",
			"description": "Core product",
			"lead": {"accountId": "acc-1"},
			"versions": [
				{"id": "1", "name": "v1.0", "released": true, "releaseDate": "2024-03-01"},
				{"id": "2", "name": "v1.1", "released": false}
			]
		}`),
	})

	projects, err := client.GetProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "ENG", projects[0].Key)

	project, err := client.GetProject(context.Background(), "ENG")
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.InDelta(t, 0.5, project.Progress, 0.0001)
	assert.Equal(t, models.ProjectStarted, project.State)
	require.NotNil(t, project.LeadID)
	assert.Equal(t, "acc-1", *project.LeadID)

	milestones, err := client.GetProjectMilestones(context.Background(), "ENG")
	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, "v1.0", milestones[0].Name)
	assert.Equal(t, "100", milestones[0].ProjectID)
	require.NotNil(t, milestones[0].TargetDate)
	assert.Nil(t, milestones[1].TargetDate)

	missing, err := client.GetProject(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = client.GetProjectMilestones(context.Background(), "NOPE")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestUnsupportedOperations(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{})
	ctx := context.Background()

	_, err := client.GetTeams(ctx)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedOperation))
	_, err = client.GetTeamMembers(ctx, "t1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedOperation))
	_, err = client.GetLabels(ctx)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedOperation))
	_, err = client.CreateLabel(ctx, models.CreateLabelRequest{Name: "bug", Color: "#f00"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedOperation))
}

func TestGetWorkspaceIsSynthesized(t *testing.T) {
	client, _ := newTestClient(t, map[string]fakeResponse{
		"GET /rest/api/2/myself": ok(`{"accountId": "acc-1", "displayName": "Ada"}`),
	})

	workspace, err := client.GetWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada's Jira Workspace", workspace.Name)
	assert.NotEmpty(t, workspace.ID)
	assert.Empty(t, workspace.Teams)
	assert.Equal(t, true, workspace.CustomFields["synthesized"])
}
