package projects

import "time"

// Project is the minimal Project API entity the client selects between.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Input is the writable part of a Project.
type Input struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsDefault   bool     `json:"isDefault,omitempty"`
}

// ResolveSelection picks the project to select after a load: the persisted
// id if still present, then a project flagged default (in the list, else
// fallback), then the first project. An empty list selects nothing.
func ResolveSelection(list []Project, persisted string, fallback *Project) string {
	if len(list) == 0 {
		return ""
	}
	if persisted != "" && indexOf(list, persisted) >= 0 {
		return persisted
	}
	for _, p := range list {
		if p.IsDefault {
			return p.ID
		}
	}
	if fallback != nil && indexOf(list, fallback.ID) >= 0 {
		return fallback.ID
	}
	return list[0].ID
}

func indexOf(list []Project, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func hasDefault(list []Project) bool {
	for _, p := range list {
		if p.IsDefault {
			return true
		}
	}
	return false
}
