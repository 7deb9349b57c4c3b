package authcoderepo

import (
	"errors"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu    sync.Mutex
	codes map[string]AuthCode
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		codes: make(map[string]AuthCode),
	}
}

func (r *InMemoryRepo) Upsert(code string, authCode *AuthCode) error {
	if code == "" {
		return errors.New("code cannot be empty")
	}
	if authCode == nil {
		return errors.New("authCode cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code] = *authCode
	return nil
}

func (r *InMemoryRepo) Take(code string) (*AuthCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	authCode, exists := r.codes[code]
	if !exists {
		return nil, ErrNotFound
	}
	delete(r.codes, code)
	return &authCode, nil
}

func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}
