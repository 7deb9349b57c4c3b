package projectrepo

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("project not found")

// Project is the stub's stored project, owned by a single user.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Repo interface {
	// List returns the owner's projects, oldest first.
	List(ownerID string) ([]Project, error)
	Get(ownerID, id string) (*Project, error)
	// Upsert stores p. When p is the default, the owner's other projects
	// stop being the default.
	Upsert(p *Project) error
	Delete(ownerID, id string) error
}
