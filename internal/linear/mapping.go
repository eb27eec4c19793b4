package linear

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/logging"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// Linear priorities: 0 no priority, 1 urgent, 2 high, 3 medium, 4 low.
const (
	priorityNone   = 0
	priorityUrgent = 1
	priorityHigh   = 2
	priorityMedium = 3
	priorityLow    = 4
)

var priorityFromLinear = map[int]models.Priority{
	priorityNone:   models.PriorityNone,
	priorityUrgent: models.PriorityHighest,
	priorityHigh:   models.PriorityHigh,
	priorityMedium: models.PriorityMedium,
	priorityLow:    models.PriorityLow,
}

// mapPriority converts a Linear priority. Values outside the table map to Medium.
func mapPriority(p *int) models.Priority {
	if p == nil {
		return models.PriorityNone
	}
	if mapped, ok := priorityFromLinear[*p]; ok {
		return mapped
	}
	return models.PriorityMedium
}

// priorityToLinear is the reverse of mapPriority. Lowest folds into Low and
// Custom names are matched against Linear's labels, falling back to medium.
func priorityToLinear(p models.Priority) int {
	switch p.Level() {
	case models.PriorityLevelNone:
		return priorityNone
	case models.PriorityLevelLowest, models.PriorityLevelLow:
		return priorityLow
	case models.PriorityLevelMedium:
		return priorityMedium
	case models.PriorityLevelHigh:
		return priorityHigh
	case models.PriorityLevelHighest:
		return priorityUrgent
	}

	switch strings.ToLower(strings.TrimSpace(p.Name())) {
	case "no priority", "none", "0":
		return priorityNone
	case "urgent", "critical", "1":
		return priorityUrgent
	case "high", "2":
		return priorityHigh
	case "medium", "3":
		return priorityMedium
	case "low", "4":
		return priorityLow
	}
	return priorityMedium
}

// Linear workflow state types.
const (
	stateBacklog   = "backlog"
	stateUnstarted = "unstarted"
	stateTriage    = "triage"
	stateStarted   = "started"
	stateCompleted = "completed"
	stateCanceled  = "canceled"
)

func mapStateType(linearType string) models.StateType {
	switch linearType {
	case stateBacklog, stateUnstarted, stateTriage:
		return models.StateOpen
	case stateStarted:
		return models.StateInProgress
	case stateCompleted:
		return models.StateClosed
	case stateCanceled:
		return models.StateCancelled
	}
	return models.CustomState(linearType)
}

// stateTypesToLinear lists the Linear state types a classification covers.
// Custom states carry their Linear type name verbatim.
func stateTypesToLinear(s models.StateType) []string {
	switch s.Kind() {
	case models.StateKindOpen:
		return []string{stateBacklog, stateUnstarted, stateTriage}
	case models.StateKindInProgress:
		return []string{stateStarted}
	case models.StateKindClosed:
		return []string{stateCompleted}
	case models.StateKindCancelled:
		return []string{stateCanceled}
	}
	return []string{s.Name()}
}

func mapProjectState(state string) models.ProjectState {
	switch strings.ToLower(state) {
	case "started":
		return models.ProjectStarted
	case "completed":
		return models.ProjectCompleted
	case "canceled", "cancelled":
		return models.ProjectCanceled
	case "paused":
		return models.ProjectPaused
	}
	return models.ProjectPlanned
}

// parseTimestamp returns the epoch for an absent value and a DecodeError for
// a present value that does not parse.
func parseTimestamp(field string, raw *string) (time.Time, error) {
	if raw == nil || *raw == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, *raw)
	if err != nil {
		return time.Time{}, apperrors.Decode(field, err)
	}
	return t.UTC(), nil
}

// parseDate accepts a calendar date (Linear's TimelessDate) or an RFC 3339
// timestamp. null yields nil.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, apperrors.Decode(field, fmt.Errorf("unrecognised date %q", value))
	}
	t = t.UTC()
	return &t, nil
}

func mapIssue(node issueNode) (models.Ticket, error) {
	if node.ID == "" {
		return models.Ticket{}, apperrors.Decode("id", fmt.Errorf("issue without id"))
	}
	if node.Identifier == "" {
		return models.Ticket{}, apperrors.Decode("identifier", fmt.Errorf("issue %s without identifier", node.ID))
	}

	createdAt, err := parseTimestamp("createdAt", node.CreatedAt)
	if err != nil {
		return models.Ticket{}, err
	}
	updatedAt, err := parseTimestamp("updatedAt", node.UpdatedAt)
	if err != nil {
		return models.Ticket{}, err
	}
	if updatedAt.Before(createdAt) {
		logging.Warn("linear issue updated before it was created",
			"issue", node.Identifier,
			"created_at", createdAt,
			"updated_at", updatedAt)
		updatedAt = createdAt
	}
	dueDate, err := parseDate("dueDate", node.DueDate)
	if err != nil {
		return models.Ticket{}, err
	}

	ticket := models.Ticket{
		ID:          node.ID,
		Identifier:  node.Identifier,
		Title:       node.Title,
		Description: node.Description,
		Priority:    mapPriority(node.Priority),
		Labels:      []string{},
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		DueDate:     dueDate,
		Estimate:    node.Estimate,
		URL:         node.URL,
	}

	if node.State != nil {
		ticket.State = models.State{
			ID:       node.State.ID,
			Name:     node.State.Name,
			Type:     mapStateType(node.State.Type),
			Position: node.State.Position,
		}
	} else {
		ticket.State = models.State{Type: models.StateOpen}
	}
	if node.Assignee != nil {
		ticket.AssigneeID = &node.Assignee.ID
	}
	if node.Creator != nil {
		ticket.CreatorID = node.Creator.ID
	}
	if node.Project != nil {
		ticket.ProjectID = &node.Project.ID
	}
	if node.Labels != nil {
		for _, label := range node.Labels.Nodes {
			ticket.Labels = append(ticket.Labels, label.Name)
		}
	}

	ticket.CustomFields = map[string]any{}
	if node.BranchName != "" {
		ticket.SetCustomField("branch_name", node.BranchName)
	}
	if node.Number != nil {
		ticket.SetCustomField("number", *node.Number)
	}
	if node.Team != nil {
		ticket.SetCustomField("team_id", node.Team.ID)
		ticket.SetCustomField("team_key", node.Team.Key)
	}
	if node.Cycle != nil {
		ticket.SetCustomField("cycle", node.Cycle.Number)
	}
	if node.Parent != nil {
		ticket.SetCustomField("parent_identifier", node.Parent.Identifier)
	}

	return ticket, nil
}

func mapIssues(nodes []issueNode) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, len(nodes))
	for _, node := range nodes {
		ticket, err := mapIssue(node)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// issueToNode is the reverse of mapIssue for every field both shapes share.
func issueToNode(t models.Ticket) issueNode {
	priority := priorityToLinear(t.Priority)
	created := t.CreatedAt.Format(time.RFC3339Nano)
	updated := t.UpdatedAt.Format(time.RFC3339Nano)

	node := issueNode{
		ID:          t.ID,
		Identifier:  t.Identifier,
		Title:       t.Title,
		Description: t.Description,
		Priority:    &priority,
		URL:         t.URL,
		CreatedAt:   &created,
		UpdatedAt:   &updated,
		Estimate:    t.Estimate,
		State: &stateNode{
			ID:       t.State.ID,
			Name:     t.State.Name,
			Type:     stateTypesToLinear(t.State.Type)[0],
			Position: t.State.Position,
		},
		Creator: &nodeRef{ID: t.CreatorID},
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(time.DateOnly)
		node.DueDate = &due
	}
	if t.AssigneeID != nil {
		node.Assignee = &nodeRef{ID: *t.AssigneeID}
	}
	if t.ProjectID != nil {
		node.Project = &nodeRef{ID: *t.ProjectID}
	}
	node.Labels = &struct {
		Nodes []labelNode `json:"nodes"`
	}{}
	for _, name := range t.Labels {
		node.Labels.Nodes = append(node.Labels.Nodes, labelNode{Name: name})
	}
	return node
}

func mapUser(node userNode) models.User {
	user := models.User{
		ID:           node.ID,
		Name:         node.Name,
		Email:        node.Email,
		AvatarURL:    node.AvatarURL,
		DisplayName:  node.DisplayName,
		Active:       true,
		CustomFields: map[string]any{"admin": node.Admin},
	}
	if node.Active != nil {
		user.Active = *node.Active
	}
	if node.Timezone != nil {
		user.CustomFields["timezone"] = *node.Timezone
	}
	return user
}

func mapUsers(nodes []userNode) []models.User {
	users := make([]models.User, 0, len(nodes))
	for _, node := range nodes {
		users = append(users, mapUser(node))
	}
	return users
}

func mapTeam(node teamNode) models.Team {
	team := models.Team{
		ID:           node.ID,
		Name:         node.Name,
		Key:          node.Key,
		Description:  node.Description,
		Members:      []models.User{},
		CustomFields: map[string]any{"private": node.Private},
	}
	if node.Members != nil {
		team.Members = mapUsers(node.Members.Nodes)
	}
	return team
}

func mapLabel(node labelNode) models.Label {
	return models.Label{
		ID:          node.ID,
		Name:        node.Name,
		Color:       node.Color,
		Description: node.Description,
	}
}

func mapProject(node projectNode) (models.Project, error) {
	createdAt, err := parseTimestamp("createdAt", node.CreatedAt)
	if err != nil {
		return models.Project{}, err
	}
	updatedAt, err := parseTimestamp("updatedAt", node.UpdatedAt)
	if err != nil {
		return models.Project{}, err
	}
	targetDate, err := parseDate("targetDate", node.TargetDate)
	if err != nil {
		return models.Project{}, err
	}

	project := models.Project{
		ID:          node.ID,
		Name:        node.Name,
		Description: node.Description,
		Key:         node.SlugID,
		State:       mapProjectState(node.State),
		TargetDate:  targetDate,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Progress:    models.ClampProgress(node.Progress),
	}
	if node.Lead != nil {
		project.LeadID = &node.Lead.ID
	}
	return project, nil
}

func mapMilestone(projectID string, node milestoneNode) (models.ProjectMilestone, error) {
	targetDate, err := parseDate("targetDate", node.TargetDate)
	if err != nil {
		return models.ProjectMilestone{}, err
	}
	return models.ProjectMilestone{
		ID:          node.ID,
		Name:        node.Name,
		Description: node.Description,
		TargetDate:  targetDate,
		ProjectID:   projectID,
	}, nil
}
