package models

import "time"

// Project is a provider project or epic-like container of tickets.
type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Key         string       `json:"key"`
	State       ProjectState `json:"state"`
	TargetDate  *time.Time   `json:"target_date"`
	LeadID      *string      `json:"lead_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	// Progress is a ratio in [0, 1].
	Progress float64 `json:"progress"`
}

// ProjectMilestone is a dated checkpoint inside a project.
type ProjectMilestone struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	TargetDate  *time.Time `json:"target_date"`
	ProjectID   string     `json:"project_id"`
}

// ClampProgress bounds p to [0, 1].
func ClampProgress(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Label is a named tag that can be attached to tickets.
type Label struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
}
