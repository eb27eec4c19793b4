package github

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

const (
	priorityLabelPrefix = "priority:"

	stateOpen   = "open"
	stateClosed = "closed"
)

// inProgressLabels mark an open issue as being worked on.
var inProgressLabels = []string{"in progress", "in-progress", "wip"}

// cancelledLabels mark a closed issue as dropped rather than done.
var cancelledLabels = []string{"wontfix", "won't fix", "duplicate", "invalid", "not planned"}

func hasLabel(labels []string, candidates []string) bool {
	for _, label := range labels {
		for _, candidate := range candidates {
			if strings.EqualFold(label, candidate) {
				return true
			}
		}
	}
	return false
}

// mapPriority derives a priority from "priority:<name>" labels. Issues
// without one have no priority.
func mapPriority(labels []string) models.Priority {
	for _, label := range labels {
		if !strings.HasPrefix(strings.ToLower(label), priorityLabelPrefix) {
			continue
		}
		name := strings.TrimSpace(label[len(priorityLabelPrefix):])
		switch strings.ToLower(name) {
		case "urgent", "critical", "highest", "p0":
			return models.PriorityHighest
		case "high", "p1":
			return models.PriorityHigh
		case "medium", "normal", "p2":
			return models.PriorityMedium
		case "low", "p3":
			return models.PriorityLow
		case "lowest", "p4":
			return models.PriorityLowest
		}
		return models.CustomPriority(name)
	}
	return models.PriorityNone
}

// priorityLabel returns the label carrying p, or "" for no priority.
func priorityLabel(p models.Priority) string {
	switch p.Level() {
	case models.PriorityLevelNone, models.PriorityLevelUnknown:
		return ""
	case models.PriorityLevelCustom:
		return priorityLabelPrefix + p.Name()
	}
	return priorityLabelPrefix + p.String()
}

func isPriorityLabel(label string) bool {
	return strings.HasPrefix(strings.ToLower(label), priorityLabelPrefix)
}

func mapState(state string, labels []string) models.State {
	switch state {
	case stateClosed:
		if hasLabel(labels, cancelledLabels) {
			return models.State{ID: stateClosed, Name: "Closed", Type: models.StateCancelled, Position: 2}
		}
		return models.State{ID: stateClosed, Name: "Closed", Type: models.StateClosed, Position: 2}
	case stateOpen:
		if hasLabel(labels, inProgressLabels) {
			return models.State{ID: stateOpen, Name: "In Progress", Type: models.StateInProgress, Position: 1}
		}
		return models.State{ID: stateOpen, Name: "Open", Type: models.StateOpen, Position: 0}
	}
	return models.State{ID: state, Name: state, Type: models.CustomState(state)}
}

func labelNames(labels []*github.Label) []string {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.GetName())
	}
	return names
}

func epochIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

func (c *Client) identifier(number int) string {
	return c.repository + "#" + strconv.Itoa(number)
}

// mapIssue fails with a decode error when the issue carries no number.
func (c *Client) mapIssue(issue *github.Issue) (models.Ticket, error) {
	if issue.GetNumber() == 0 {
		return models.Ticket{}, apperrors.Decode("number", errors.New("issue has no number"))
	}
	labels := labelNames(issue.Labels)

	ticket := models.Ticket{
		ID:           strconv.Itoa(issue.GetNumber()),
		Identifier:   c.identifier(issue.GetNumber()),
		Title:        issue.GetTitle(),
		Priority:     mapPriority(labels),
		State:        mapState(issue.GetState(), labels),
		CreatorID:    issue.GetUser().GetLogin(),
		Labels:       labels,
		CreatedAt:    epochIfZero(issue.GetCreatedAt()),
		UpdatedAt:    epochIfZero(issue.GetUpdatedAt()),
		URL:          issue.GetHTMLURL(),
		CustomFields: map[string]any{},
	}
	if issue.Body != nil && *issue.Body != "" {
		body := *issue.Body
		ticket.Description = &body
	}
	if issue.Assignee != nil {
		assignee := issue.Assignee.GetLogin()
		ticket.AssigneeID = &assignee
	}
	if ticket.UpdatedAt.Before(ticket.CreatedAt) {
		ticket.UpdatedAt = ticket.CreatedAt
	}

	ticket.SetCustomField("number", issue.GetNumber())
	ticket.SetCustomField("node_id", issue.GetNodeID())
	ticket.SetCustomField("comments", issue.GetComments())
	if issue.Milestone != nil {
		ticket.SetCustomField("milestone", issue.Milestone.GetTitle())
		ticket.SetCustomField("milestone_number", issue.Milestone.GetNumber())
		if due := issue.Milestone.GetDueOn(); !due.IsZero() {
			due = due.UTC()
			ticket.DueDate = &due
		}
	}
	if len(issue.Assignees) > 1 {
		logins := make([]string, 0, len(issue.Assignees))
		for _, u := range issue.Assignees {
			logins = append(logins, u.GetLogin())
		}
		ticket.SetCustomField("assignees", logins)
	}
	if issue.ClosedAt != nil {
		ticket.SetCustomField("closed_at", issue.GetClosedAt().UTC())
	}
	return ticket, nil
}

func mapUser(u *github.User) models.User {
	user := models.User{
		ID:           u.GetLogin(),
		Name:         u.GetName(),
		Email:        u.GetEmail(),
		DisplayName:  u.GetLogin(),
		Active:       u.SuspendedAt == nil,
		CustomFields: map[string]any{},
	}
	if user.Name == "" {
		user.Name = u.GetLogin()
	}
	if u.AvatarURL != nil {
		avatar := u.GetAvatarURL()
		user.AvatarURL = &avatar
	}
	user.CustomFields["github_id"] = u.GetID()
	if u.Type != nil {
		user.CustomFields["type"] = u.GetType()
	}
	if u.SiteAdmin != nil {
		user.CustomFields["site_admin"] = u.GetSiteAdmin()
	}
	return user
}

func mapLabel(l *github.Label) models.Label {
	label := models.Label{
		ID:    strconv.FormatInt(l.GetID(), 10),
		Name:  l.GetName(),
		Color: "#" + strings.TrimPrefix(l.GetColor(), "#"),
	}
	if l.Description != nil && *l.Description != "" {
		description := *l.Description
		label.Description = &description
	}
	return label
}

func mapTeam(t *github.Team) models.Team {
	team := models.Team{
		ID:           t.GetSlug(),
		Name:         t.GetName(),
		Key:          t.GetSlug(),
		Members:      []models.User{},
		CustomFields: map[string]any{"github_id": t.GetID()},
	}
	if t.Description != nil && *t.Description != "" {
		description := *t.Description
		team.Description = &description
	}
	if t.Privacy != nil {
		team.CustomFields["privacy"] = t.GetPrivacy()
	}
	return team
}

func (c *Client) mapMilestone(m *github.Milestone) models.ProjectMilestone {
	milestone := models.ProjectMilestone{
		ID:        strconv.Itoa(m.GetNumber()),
		Name:      m.GetTitle(),
		ProjectID: c.repository,
	}
	if m.Description != nil && *m.Description != "" {
		description := *m.Description
		milestone.Description = &description
	}
	if m.DueOn != nil {
		due := m.GetDueOn().UTC()
		milestone.TargetDate = &due
	}
	return milestone
}
