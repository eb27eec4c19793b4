package linear

import (
	"strings"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// coreFilterKeys are the IssueFilter keys produced from TicketFilter fields.
// Custom filters may not redefine them.
var coreFilterKeys = map[string]string{
	"assignee":    "assignee_id",
	"project":     "project_id",
	"state":       "state",
	"priority":    "priority",
	"labels":      "labels",
	"and":         "labels",
	"or":          "query",
	"title":       "query",
	"description": "query",
}

// buildIssueFilter translates a TicketFilter into a Linear IssueFilter object.
// A nil map means "no constraint".
func buildIssueFilter(filter models.TicketFilter) (map[string]any, error) {
	if filter.IsEmpty() {
		return nil, nil
	}

	out := map[string]any{}
	if filter.AssigneeID != nil {
		out["assignee"] = map[string]any{"id": map[string]any{"eq": *filter.AssigneeID}}
	}
	if filter.ProjectID != nil {
		out["project"] = map[string]any{"id": map[string]any{"eq": *filter.ProjectID}}
	}
	if filter.StateType != nil {
		out["state"] = map[string]any{"type": map[string]any{"in": stateTypesToLinear(*filter.StateType)}}
	}
	if filter.Priority != nil {
		out["priority"] = map[string]any{"eq": priorityToLinear(*filter.Priority)}
	}
	if len(filter.Labels) > 0 {
		// One clause per label so a ticket must carry all of them.
		clauses := make([]any, 0, len(filter.Labels))
		for _, name := range filter.Labels {
			clauses = append(clauses, map[string]any{
				"labels": map[string]any{"some": map[string]any{"name": map[string]any{"eqIgnoreCase": name}}},
			})
		}
		out["and"] = clauses
	}
	if filter.SearchQuery != nil && strings.TrimSpace(*filter.SearchQuery) != "" {
		query := strings.TrimSpace(*filter.SearchQuery)
		out["or"] = []any{
			map[string]any{"title": map[string]any{"containsIgnoreCase": query}},
			map[string]any{"description": map[string]any{"containsIgnoreCase": query}},
		}
	}

	for key, value := range filter.CustomFilters {
		if _, core := coreFilterKeys[key]; core {
			return nil, apperrors.UnsupportedFilter(providerName, "custom_filters."+key)
		}
		out[key] = value
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
