package clientrepo

import (
	"errors"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

type InMemoryRepo struct {
	clients map[string]Client
	lock    sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		clients: make(map[string]Client),
	}
}

func (r *InMemoryRepo) Upsert(client *Client) error {
	if client == nil || client.ID == "" {
		return errors.New("client id cannot be empty")
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	c := *client
	c.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	c.Scopes = append([]string(nil), client.Scopes...)
	r.clients[c.ID] = c
	return nil
}

func (r *InMemoryRepo) Get(clientID string) (*Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}
