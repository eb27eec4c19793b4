package jira

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

const orderByUpdated = "ORDER BY updated DESC"

// coreJQLFields are driven by TicketFilter itself and may not be overridden
// through custom filters.
var coreJQLFields = map[string]struct{}{
	"assignee":       {},
	"project":        {},
	"status":         {},
	"statuscategory": {},
	"priority":       {},
	"labels":         {},
	"text":           {},
}

// nativeJQLFields are system fields accepted as custom filters.
var nativeJQLFields = map[string]struct{}{
	"component":  {},
	"creator":    {},
	"duedate":    {},
	"fixversion": {},
	"issuetype":  {},
	"reporter":   {},
	"resolution": {},
	"sprint":     {},
	"type":       {},
}

// customFieldKey matches Jira custom field ids such as customfield_10010.
var customFieldKey = regexp.MustCompile(`^customfield_[0-9]+$`)

// quote renders s as a JQL string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func stateClause(state models.StateType) string {
	switch state.Kind() {
	case models.StateKindOpen:
		return `statusCategory = "To Do"`
	case models.StateKindInProgress:
		return `statusCategory = "In Progress"`
	case models.StateKindClosed:
		return `statusCategory = Done AND (resolution is EMPTY OR resolution not in ` + resolutionList() + `)`
	case models.StateKindCancelled:
		return `statusCategory = Done AND resolution in ` + resolutionList()
	default:
		return "status = " + quote(state.Name())
	}
}

func resolutionList() string {
	quoted := make([]string, len(cancelledResolutions))
	for i, name := range cancelledResolutions {
		quoted[i] = quote(name)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func literal(value any) string {
	switch v := value.(type) {
	case string:
		return quote(v)
	case nil:
		return "EMPTY"
	default:
		return fmt.Sprint(v)
	}
}

func customClause(key string, value any) string {
	switch v := value.(type) {
	case []string:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = quote(item)
		}
		return fmt.Sprintf("%s in (%s)", key, strings.Join(items, ", "))
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = literal(item)
		}
		return fmt.Sprintf("%s in (%s)", key, strings.Join(items, ", "))
	case nil:
		return key + " is EMPTY"
	default:
		return fmt.Sprintf("%s = %s", key, literal(v))
	}
}

// buildJQL translates a filter into a JQL query ordered by most recent update.
func buildJQL(filter models.TicketFilter) (string, error) {
	var clauses []string

	if filter.AssigneeID != nil {
		clauses = append(clauses, "assignee = "+quote(*filter.AssigneeID))
	}
	if filter.ProjectID != nil {
		clauses = append(clauses, "project = "+quote(*filter.ProjectID))
	}
	if filter.StateType != nil {
		clauses = append(clauses, stateClause(*filter.StateType))
	}
	if filter.Priority != nil {
		name := priorityToJira(*filter.Priority)
		if name == "" {
			clauses = append(clauses, "priority is EMPTY")
		} else {
			clauses = append(clauses, "priority = "+quote(name))
		}
	}
	for _, label := range filter.Labels {
		clauses = append(clauses, "labels = "+quote(label))
	}
	if filter.SearchQuery != nil && strings.TrimSpace(*filter.SearchQuery) != "" {
		clauses = append(clauses, "text ~ "+quote(*filter.SearchQuery))
	}

	keys := make([]string, 0, len(filter.CustomFilters))
	for key := range filter.CustomFilters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lower := strings.ToLower(key)
		if _, core := coreJQLFields[lower]; core {
			return "", apperrors.UnsupportedFilter(providerName, key)
		}
		_, native := nativeJQLFields[lower]
		if !native && !customFieldKey.MatchString(lower) {
			return "", apperrors.UnsupportedFilter(providerName, key)
		}
		clauses = append(clauses, customClause(key, filter.CustomFilters[key]))
	}

	if len(clauses) == 0 {
		return orderByUpdated, nil
	}
	return strings.Join(clauses, " AND ") + " " + orderByUpdated, nil
}
