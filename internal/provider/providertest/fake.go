// Package providertest provides an in-memory TicketService for tests.
package providertest

import (
	"context"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/provider"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// Service is an in-memory provider.TicketService. Set Err to make every
// call fail; Calls records the method names invoked.
type Service struct {
	mu sync.Mutex

	CurrentUser models.User
	Users       map[string]models.User
	Tickets     []models.Ticket
	Teams       []models.Team
	Labels      []models.Label
	Projects    []models.Project
	Milestones  map[string][]models.ProjectMilestone
	Workspace   models.Workspace

	Err   error
	Calls []string

	// LastFilter, LastCreate and LastUpdate capture the most recent requests.
	LastFilter *models.TicketFilter
	LastCreate *models.CreateTicketRequest
	LastUpdate *models.UpdateTicketRequest
}

var _ provider.TicketService = (*Service)(nil)

func (s *Service) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, name)
	return s.Err
}

// CallCount returns how many port methods were invoked.
func (s *Service) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

func (s *Service) GetAssignedTickets(_ context.Context, userID string) ([]models.Ticket, error) {
	if err := s.record("GetAssignedTickets"); err != nil {
		return nil, err
	}
	if _, ok := s.Users[userID]; !ok && userID != s.CurrentUser.ID {
		return nil, apperrors.NotFound("user", userID)
	}
	tickets := []models.Ticket{}
	for _, t := range s.Tickets {
		if t.AssigneeID != nil && *t.AssigneeID == userID {
			tickets = append(tickets, t)
		}
	}
	return tickets, nil
}

func (s *Service) SearchTickets(_ context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	if err := s.record("SearchTickets"); err != nil {
		return nil, err
	}
	s.LastFilter = &filter
	tickets := []models.Ticket{}
	for _, t := range s.Tickets {
		if filter.SearchQuery != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*filter.SearchQuery)) {
			continue
		}
		if filter.StateType != nil && t.State.Type != *filter.StateType {
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *Service) find(id string) *models.Ticket {
	for i := range s.Tickets {
		if s.Tickets[i].ID == id || s.Tickets[i].Identifier == id {
			t := s.Tickets[i]
			return &t
		}
	}
	return nil
}

func (s *Service) GetTicket(_ context.Context, ticketID string) (*models.Ticket, error) {
	if err := s.record("GetTicket"); err != nil {
		return nil, err
	}
	return s.find(ticketID), nil
}

func (s *Service) CreateTicket(_ context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	if err := s.record("CreateTicket"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.LastCreate = &req
	ticket := models.Ticket{
		ID:           "new-1",
		Identifier:   "NEW-1",
		Title:        req.Title,
		Description:  req.Description,
		State:        models.State{Type: models.StateOpen},
		Labels:       append([]string{}, req.LabelIDs...),
		AssigneeID:   req.AssigneeID,
		CustomFields: map[string]any{},
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}
	s.Tickets = append(s.Tickets, ticket)
	return &ticket, nil
}

func (s *Service) UpdateTicket(_ context.Context, req models.UpdateTicketRequest) (*models.Ticket, error) {
	if err := s.record("UpdateTicket"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.LastUpdate = &req
	ticket := s.find(req.ID)
	if ticket == nil {
		return nil, apperrors.NotFound("ticket", req.ID)
	}
	if req.Title != nil {
		ticket.Title = *req.Title
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}
	return ticket, nil
}

func (s *Service) GetCurrentUser(_ context.Context) (*models.User, error) {
	if err := s.record("GetCurrentUser"); err != nil {
		return nil, err
	}
	user := s.CurrentUser
	return &user, nil
}

func (s *Service) GetUser(_ context.Context, userID string) (*models.User, error) {
	if err := s.record("GetUser"); err != nil {
		return nil, err
	}
	if user, ok := s.Users[userID]; ok {
		return &user, nil
	}
	return nil, nil
}

func (s *Service) GetTeams(_ context.Context) ([]models.Team, error) {
	if err := s.record("GetTeams"); err != nil {
		return nil, err
	}
	return append([]models.Team{}, s.Teams...), nil
}

func (s *Service) GetTeamMembers(_ context.Context, teamID string) ([]models.User, error) {
	if err := s.record("GetTeamMembers"); err != nil {
		return nil, err
	}
	for _, team := range s.Teams {
		if team.ID == teamID {
			return append([]models.User{}, team.Members...), nil
		}
	}
	return nil, apperrors.NotFound("team", teamID)
}

func (s *Service) GetLabels(_ context.Context) ([]models.Label, error) {
	if err := s.record("GetLabels"); err != nil {
		return nil, err
	}
	return append([]models.Label{}, s.Labels...), nil
}

func (s *Service) CreateLabel(_ context.Context, req models.CreateLabelRequest) (*models.Label, error) {
	if err := s.record("CreateLabel"); err != nil {
		return nil, err
	}
	label := models.Label{ID: "label-" + req.Name, Name: req.Name, Color: req.Color, Description: req.Description}
	s.Labels = append(s.Labels, label)
	return &label, nil
}

func (s *Service) GetProjects(_ context.Context) ([]models.Project, error) {
	if err := s.record("GetProjects"); err != nil {
		return nil, err
	}
	return append([]models.Project{}, s.Projects...), nil
}

func (s *Service) GetProject(_ context.Context, projectID string) (*models.Project, error) {
	if err := s.record("GetProject"); err != nil {
		return nil, err
	}
	for _, p := range s.Projects {
		if p.ID == projectID {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Service) GetProjectMilestones(_ context.Context, projectID string) ([]models.ProjectMilestone, error) {
	if err := s.record("GetProjectMilestones"); err != nil {
		return nil, err
	}
	milestones, ok := s.Milestones[projectID]
	if !ok {
		return nil, apperrors.NotFound("project", projectID)
	}
	return milestones, nil
}

func (s *Service) GetWorkspace(_ context.Context) (*models.Workspace, error) {
	if err := s.record("GetWorkspace"); err != nil {
		return nil, err
	}
	workspace := s.Workspace
	return &workspace, nil
}

// Ticket builds a ticket assigned to assignee in the given state.
func Ticket(id, title, assignee string, state models.StateType) models.Ticket {
	return models.Ticket{
		ID:           id,
		Identifier:   strings.ToUpper(id),
		Title:        title,
		Priority:     models.PriorityNone,
		State:        models.State{Type: state, Name: state.String()},
		AssigneeID:   &assignee,
		Labels:       []string{},
		CustomFields: map[string]any{},
	}
}

// SortedCalls returns the distinct method names invoked, sorted.
func (s *Service) SortedCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var names []string
	for _, c := range s.Calls {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			names = append(names, c)
		}
	}
	sort.Strings(names)
	return names
}
