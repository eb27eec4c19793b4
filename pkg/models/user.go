package models

// User is an account known to the provider.
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	AvatarURL    *string        `json:"avatar_url"`
	DisplayName  string         `json:"display_name"`
	Active       bool           `json:"active"`
	CustomFields map[string]any `json:"custom_fields"`
}

// Team groups users; Key is unique within a workspace.
type Team struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Key          string         `json:"key"`
	Description  *string        `json:"description"`
	Members      []User         `json:"members"`
	CustomFields map[string]any `json:"custom_fields"`
}

// Workspace is the top-level container of teams. Providers without a native
// workspace concept synthesize one.
type Workspace struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  *string        `json:"description"`
	URL          string         `json:"url"`
	Teams        []Team         `json:"teams"`
	CustomFields map[string]any `json:"custom_fields"`
}
