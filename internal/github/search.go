package github

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// coreQualifiers are set from TicketFilter fields or fixed by the adapter.
var coreQualifiers = map[string]struct{}{
	"repo":     {},
	"is":       {},
	"type":     {},
	"assignee": {},
	"label":    {},
	"state":    {},
}

// extraQualifiers are GitHub search qualifiers accepted as custom filters.
var extraQualifiers = map[string]struct{}{
	"author":    {},
	"closed":    {},
	"comments":  {},
	"commenter": {},
	"created":   {},
	"in":        {},
	"involves":  {},
	"mentions":  {},
	"milestone": {},
	"no":        {},
	"reactions": {},
	"updated":   {},
}

// qualifierValue quotes values that contain spaces.
func qualifierValue(value string) string {
	if strings.ContainsAny(value, " \t") {
		return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}
	return value
}

func stateQualifiers(state models.StateType) []string {
	switch state.Kind() {
	case models.StateKindOpen:
		q := []string{"is:open"}
		for _, label := range inProgressLabels {
			q = append(q, "-label:"+qualifierValue(label))
		}
		return q
	case models.StateKindInProgress:
		quoted := make([]string, len(inProgressLabels))
		for i, label := range inProgressLabels {
			quoted[i] = qualifierValue(label)
		}
		return []string{"is:open", "label:" + strings.Join(quoted, ",")}
	case models.StateKindClosed:
		q := []string{"is:closed"}
		for _, label := range cancelledLabels {
			q = append(q, "-label:"+qualifierValue(label))
		}
		return q
	case models.StateKindCancelled:
		quoted := make([]string, len(cancelledLabels))
		for i, label := range cancelledLabels {
			quoted[i] = qualifierValue(label)
		}
		return []string{"is:closed", "label:" + strings.Join(quoted, ",")}
	default:
		return []string{"label:" + qualifierValue(state.Name())}
	}
}

// buildSearchQuery translates a filter into a GitHub issue search query
// scoped to repository.
func buildSearchQuery(repository string, filter models.TicketFilter) (string, error) {
	if filter.ProjectID != nil {
		return "", apperrors.UnsupportedFilter(providerName, "project_id")
	}

	parts := []string{"repo:" + repository, "is:issue"}
	if filter.AssigneeID != nil {
		parts = append(parts, "assignee:"+qualifierValue(*filter.AssigneeID))
	}
	if filter.StateType != nil {
		parts = append(parts, stateQualifiers(*filter.StateType)...)
	}
	if filter.Priority != nil {
		label := priorityLabel(*filter.Priority)
		if label == "" {
			return "", apperrors.UnsupportedFilter(providerName, "priority")
		}
		parts = append(parts, "label:"+qualifierValue(label))
	}
	for _, label := range filter.Labels {
		parts = append(parts, "label:"+qualifierValue(label))
	}

	keys := make([]string, 0, len(filter.CustomFilters))
	for key := range filter.CustomFilters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lower := strings.ToLower(key)
		if _, core := coreQualifiers[lower]; core {
			return "", apperrors.UnsupportedFilter(providerName, key)
		}
		if _, ok := extraQualifiers[lower]; !ok {
			return "", apperrors.UnsupportedFilter(providerName, key)
		}
		parts = append(parts, lower+":"+qualifierValue(fmt.Sprint(filter.CustomFilters[key])))
	}

	if filter.SearchQuery != nil && strings.TrimSpace(*filter.SearchQuery) != "" {
		parts = append(parts, strings.TrimSpace(*filter.SearchQuery))
	}
	return strings.Join(parts, " "), nil
}
