package refreshrepofake

import (
	"sync"

	"github.com/jrsteele09/go-session-client/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens map[string]refresh.StoredRefreshToken
	lock   sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens: make(map[string]refresh.StoredRefreshToken),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.tokens[refreshToken.Token] = *refreshToken
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if _, ok := tr.tokens[token]; !ok {
		return refresh.ErrNotFound
	}
	delete(tr.tokens, token)
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	rt, ok := tr.tokens[token]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	return &rt, nil
}

func (tr *FakeRefreshTokenRepo) DeleteSession(sessionID string) (int, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	removed := 0
	for k, rt := range tr.tokens {
		if rt.SessionID == sessionID {
			delete(tr.tokens, k)
			removed++
		}
	}
	return removed, nil
}

func (tr *FakeRefreshTokenRepo) Len() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return len(tr.tokens)
}
