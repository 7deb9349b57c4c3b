package projectrepo

import (
	"slices"
	"sort"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

type InMemoryRepo struct {
	mu       sync.RWMutex
	projects map[string]map[string]Project // owner id -> project id -> project
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		projects: make(map[string]map[string]Project),
	}
}

func (r *InMemoryRepo) List(ownerID string) ([]Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Project, 0, len(r.projects[ownerID]))
	for _, p := range r.projects[ownerID] {
		list = append(list, clone(p))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *InMemoryRepo) Get(ownerID, id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[ownerID][id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clone(p)
	return &c, nil
}

func (r *InMemoryRepo) Upsert(p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned, ok := r.projects[p.OwnerID]
	if !ok {
		owned = make(map[string]Project)
		r.projects[p.OwnerID] = owned
	}
	if p.IsDefault {
		for id, other := range owned {
			if id != p.ID && other.IsDefault {
				other.IsDefault = false
				owned[id] = other
			}
		}
	}
	owned[p.ID] = clone(*p)
	return nil
}

func (r *InMemoryRepo) Delete(ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[ownerID][id]; !ok {
		return ErrNotFound
	}
	delete(r.projects[ownerID], id)
	return nil
}

func clone(p Project) Project {
	p.Tags = slices.Clone(p.Tags)
	return p
}
