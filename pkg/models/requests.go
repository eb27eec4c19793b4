package models

import (
	"strings"
	"time"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
)

// TicketFilter constrains a ticket search. Unset fields impose no constraint
// and all set fields must match.
type TicketFilter struct {
	AssigneeID  *string
	ProjectID   *string
	StateType   *StateType
	Priority    *Priority
	Labels      []string
	SearchQuery *string
	// CustomFilters carries provider-native predicates keyed by the provider's field name.
	CustomFilters map[string]any
}

// IsEmpty reports whether the filter imposes no constraint at all.
func (f TicketFilter) IsEmpty() bool {
	return f.AssigneeID == nil && f.ProjectID == nil && f.StateType == nil && f.Priority == nil &&
		len(f.Labels) == 0 && f.SearchQuery == nil && len(f.CustomFilters) == 0
}

// CreateTicketRequest describes a new ticket. Some providers require fields
// marked optional here (for example a team) and reject the request without them.
type CreateTicketRequest struct {
	Title        string
	Description  *string
	Priority     *Priority
	AssigneeID   *string
	TeamID       *string
	ProjectID    *string
	LabelIDs     []string
	DueDate      *time.Time
	Estimate     *float64
	CustomFields map[string]any
}

// Validate checks the provider-independent constraints of the request.
func (r CreateTicketRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return apperrors.MissingField("title")
	}
	return CheckCustomFields(r.CustomFields)
}

// UpdateTicketRequest is a partial update: only non-nil fields change.
type UpdateTicketRequest struct {
	ID           string
	Title        *string
	Description  *string
	Priority     *Priority
	AssigneeID   *string
	StateID      *string
	LabelIDs     []string
	DueDate      *time.Time
	Estimate     *float64
	CustomFields map[string]any
}

// Validate checks the provider-independent constraints of the request.
func (r UpdateTicketRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return apperrors.MissingField("issue_id")
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return apperrors.Validation("title", "title cannot be empty")
	}
	return CheckCustomFields(r.CustomFields)
}

// HasChanges reports whether the request would modify anything.
func (r UpdateTicketRequest) HasChanges() bool {
	return r.Title != nil || r.Description != nil || r.Priority != nil || r.AssigneeID != nil ||
		r.StateID != nil || r.LabelIDs != nil || r.DueDate != nil || r.Estimate != nil ||
		len(r.CustomFields) > 0
}

// CreateLabelRequest describes a new label.
type CreateLabelRequest struct {
	Name        string
	Color       string
	Description *string
	TeamID      *string
}

// Validate checks the provider-independent constraints of the request.
func (r CreateLabelRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.MissingField("name")
	}
	if strings.TrimSpace(r.Color) == "" {
		return apperrors.MissingField("color")
	}
	return nil
}
