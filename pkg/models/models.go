// Package models defines the provider-neutral ticket domain shared across the application.
package models

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
)

// Ticket is a provider-neutral unit of trackable work.
type Ticket struct {
	// ID is the opaque, provider-issued identifier
	ID string `json:"id"`

	// Identifier is the human-readable key (e.g., "ENG-123")
	Identifier string `json:"identifier"`

	// Title is the ticket's summary line
	Title string `json:"title"`

	// Description is the full body text, if any
	Description *string `json:"description"`

	Priority Priority `json:"priority"`
	State    State    `json:"state"`

	// AssigneeID is the user the ticket is assigned to, if any
	AssigneeID *string `json:"assignee_id"`

	// CreatorID is the user that created the ticket
	CreatorID string `json:"creator_id"`

	// ProjectID is the project the ticket belongs to, if any
	ProjectID *string `json:"project_id"`

	// Labels is the ordered list of label names attached to the ticket
	Labels []string `json:"labels"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DueDate   *time.Time `json:"due_date"`
	Estimate  *float64   `json:"estimate"`

	// URL is the canonical link to the ticket in the provider's UI
	URL string `json:"url"`

	// CustomFields holds provider-specific data that has no core field
	CustomFields map[string]any `json:"custom_fields"`
}

// State is a workflow state as reported by the provider.
type State struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type StateType `json:"type"`
	// Position orders states within one provider only.
	Position float64 `json:"position"`
}

// ReservedTicketFields lists keys that custom fields may never use.
var ReservedTicketFields = map[string]struct{}{
	"id":            {},
	"identifier":    {},
	"title":         {},
	"description":   {},
	"priority":      {},
	"state":         {},
	"assignee_id":   {},
	"creator_id":    {},
	"project_id":    {},
	"labels":        {},
	"created_at":    {},
	"updated_at":    {},
	"due_date":      {},
	"estimate":      {},
	"url":           {},
	"custom_fields": {},
}

// CheckCustomFields rejects custom field keys that would shadow a core ticket field.
func CheckCustomFields(fields map[string]any) error {
	for key := range fields {
		if _, reserved := ReservedTicketFields[key]; reserved {
			return apperrors.Validation("custom_fields."+key, "custom field shadows a core ticket field")
		}
	}
	return nil
}

// CheckNativeFields rejects custom field keys that name a provider-native
// field an adapter already fills from a core field. Keys compare without case.
func CheckNativeFields(fields map[string]any, native map[string]struct{}) error {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, reserved := native[strings.ToLower(key)]; reserved {
			return apperrors.Validation("custom_fields."+key, "custom field overrides a core ticket field")
		}
	}
	return nil
}

// NativeFieldSet builds a lookup set for CheckNativeFields.
func NativeFieldSet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[strings.ToLower(key)] = struct{}{}
	}
	return set
}

// SetCustomField stores a provider-specific value on the ticket. Keys that
// collide with a core field are dropped and false is returned.
func (t *Ticket) SetCustomField(key string, value any) bool {
	if _, reserved := ReservedTicketFields[key]; reserved {
		return false
	}
	if t.CustomFields == nil {
		t.CustomFields = make(map[string]any)
	}
	t.CustomFields[key] = value
	return true
}

// IsActive reports whether the ticket still needs work. Custom states count as active.
func (t Ticket) IsActive() bool {
	switch t.State.Type.Kind() {
	case StateKindClosed, StateKindCancelled:
		return false
	default:
		return true
	}
}
