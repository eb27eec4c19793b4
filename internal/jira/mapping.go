package jira

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// Jira status category keys.
const (
	categoryNew           = "new"
	categoryIndeterminate = "indeterminate"
	categoryDone          = "done"
)

// cancelledResolutions are resolutions that mean the work was dropped rather than done.
var cancelledResolutions = []string{"Won't Do", "Won't Fix", "Cancelled", "Declined", "Duplicate"}

// mapPriority converts a Jira priority name. Unknown names map to Medium;
// a missing priority maps to None.
func mapPriority(p *jira.Priority) models.Priority {
	if p == nil || p.Name == "" {
		return models.PriorityNone
	}
	switch strings.ToLower(p.Name) {
	case "highest", "blocker", "critical":
		return models.PriorityHighest
	case "high", "major":
		return models.PriorityHigh
	case "medium":
		return models.PriorityMedium
	case "low", "minor":
		return models.PriorityLow
	case "lowest", "trivial":
		return models.PriorityLowest
	}
	return models.PriorityMedium
}

// priorityToJira returns the Jira priority name for p. Custom names are used
// verbatim since Jira priority schemes are user-defined; None has no Jira
// equivalent and yields "".
func priorityToJira(p models.Priority) string {
	switch p.Level() {
	case models.PriorityLevelLowest:
		return "Lowest"
	case models.PriorityLevelLow:
		return "Low"
	case models.PriorityLevelMedium:
		return "Medium"
	case models.PriorityLevelHigh:
		return "High"
	case models.PriorityLevelHighest:
		return "Highest"
	case models.PriorityLevelCustom:
		return p.Name()
	}
	return ""
}

func isCancelledResolution(r *jira.Resolution) bool {
	if r == nil {
		return false
	}
	for _, name := range cancelledResolutions {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

func mapState(status *jira.Status, resolution *jira.Resolution) models.State {
	if status == nil {
		return models.State{Type: models.StateOpen}
	}

	state := models.State{
		ID:       status.ID,
		Name:     status.Name,
		Position: float64(status.StatusCategory.ID),
	}
	switch status.StatusCategory.Key {
	case categoryNew:
		state.Type = models.StateOpen
	case categoryIndeterminate:
		state.Type = models.StateInProgress
	case categoryDone:
		if isCancelledResolution(resolution) {
			state.Type = models.StateCancelled
		} else {
			state.Type = models.StateClosed
		}
	default:
		state.Type = models.CustomState(status.Name)
	}
	return state
}

func epochIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

// mapIssue fails with a decode error when the issue has no id or key.
func (c *Client) mapIssue(issue jira.Issue) (models.Ticket, error) {
	if issue.ID == "" {
		return models.Ticket{}, apperrors.Decode("id", errors.New("issue has no id"))
	}
	if issue.Key == "" {
		return models.Ticket{}, apperrors.Decode("key", fmt.Errorf("issue %s has no key", issue.ID))
	}

	ticket := models.Ticket{
		ID:           issue.ID,
		Identifier:   issue.Key,
		Labels:       []string{},
		URL:          c.browseURL(issue.Key),
		CustomFields: map[string]any{},
	}
	fields := issue.Fields
	if fields == nil {
		ticket.State = models.State{Type: models.StateOpen}
		ticket.CreatedAt = time.Unix(0, 0).UTC()
		ticket.UpdatedAt = ticket.CreatedAt
		return ticket, nil
	}

	ticket.Title = fields.Summary
	if fields.Description != "" {
		description := fields.Description
		ticket.Description = &description
	}
	ticket.Priority = mapPriority(fields.Priority)
	ticket.State = mapState(fields.Status, fields.Resolution)
	if fields.Assignee != nil && fields.Assignee.AccountID != "" {
		assignee := fields.Assignee.AccountID
		ticket.AssigneeID = &assignee
	}
	if fields.Creator != nil {
		ticket.CreatorID = fields.Creator.AccountID
	}
	if fields.Project.Key != "" {
		project := fields.Project.Key
		ticket.ProjectID = &project
	}
	ticket.Labels = append(ticket.Labels, fields.Labels...)

	ticket.CreatedAt = epochIfZero(time.Time(fields.Created))
	ticket.UpdatedAt = epochIfZero(time.Time(fields.Updated))
	if ticket.UpdatedAt.Before(ticket.CreatedAt) {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	if due := time.Time(fields.Duedate); !due.IsZero() {
		due = due.UTC()
		ticket.DueDate = &due
	}
	if fields.TimeEstimate > 0 {
		hours := float64(fields.TimeEstimate) / 3600
		ticket.Estimate = &hours
	}

	if fields.Type.Name != "" {
		ticket.SetCustomField("issue_type", fields.Type.Name)
	}
	if fields.Reporter != nil {
		ticket.SetCustomField("reporter_id", fields.Reporter.AccountID)
	}
	if fields.Resolution != nil {
		ticket.SetCustomField("resolution", fields.Resolution.Name)
	}
	for key, value := range fields.Unknowns {
		if strings.HasPrefix(key, "customfield_") && value != nil {
			ticket.SetCustomField(key, value)
		}
	}

	return ticket, nil
}

func (c *Client) browseURL(key string) string {
	base := c.client.GetBaseURL()
	return strings.TrimSuffix(base.String(), "/") + "/browse/" + key
}

func mapUser(u jira.User) models.User {
	user := models.User{
		ID:           u.AccountID,
		Name:         u.Name,
		Email:        u.EmailAddress,
		DisplayName:  u.DisplayName,
		Active:       u.Active,
		CustomFields: map[string]any{},
	}
	if user.ID == "" {
		// Jira Server identifies users by key rather than account id.
		user.ID = u.Key
	}
	if user.Name == "" {
		user.Name = u.DisplayName
	}
	if u.AvatarUrls.Four8X48 != "" {
		avatar := u.AvatarUrls.Four8X48
		user.AvatarURL = &avatar
	}
	if u.TimeZone != "" {
		user.CustomFields["timezone"] = u.TimeZone
	}
	if u.AccountType != "" {
		user.CustomFields["account_type"] = u.AccountType
	}
	return user
}

func mapProject(p jira.Project) models.Project {
	project := models.Project{
		ID:        p.ID,
		Name:      p.Name,
		Key:       p.Key,
		State:     models.ProjectStarted,
		CreatedAt: time.Unix(0, 0).UTC(),
		UpdatedAt: time.Unix(0, 0).UTC(),
	}
	if p.Description != "" {
		description := p.Description
		project.Description = &description
	}
	if lead := p.Lead.AccountID; lead != "" {
		project.LeadID = &lead
	}

	// Progress is the share of released versions.
	if len(p.Versions) > 0 {
		released := 0
		for _, v := range p.Versions {
			if v.Released != nil && *v.Released {
				released++
			}
		}
		project.Progress = models.ClampProgress(float64(released) / float64(len(p.Versions)))
		if released == len(p.Versions) {
			project.State = models.ProjectCompleted
		}
	}
	return project
}
