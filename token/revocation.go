package token

import (
	"sync"
	"time"
)

// RevocationList holds revoked access tokens by jti and whole sessions by
// sid. Entries only need to live until every token they cover has expired.
type RevocationList interface {
	RevokeToken(jti string, until time.Time) error
	RevokeSession(sid string, until time.Time) error
	IsRevoked(jti, sid string) bool
	Sweep(now time.Time) int
}

type InMemoryRevocationList struct {
	mu       sync.RWMutex
	tokens   map[string]time.Time
	sessions map[string]time.Time
}

var _ RevocationList = (*InMemoryRevocationList)(nil)

func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{
		tokens:   make(map[string]time.Time),
		sessions: make(map[string]time.Time),
	}
}

func (l *InMemoryRevocationList) RevokeToken(jti string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[jti] = later(l.tokens[jti], until)
	return nil
}

func (l *InMemoryRevocationList) RevokeSession(sid string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[sid] = later(l.sessions[sid], until)
	return nil
}

// IsRevoked reports whether the token or its session was revoked. Empty
// values never match.
func (l *InMemoryRevocationList) IsRevoked(jti, sid string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.tokens[jti]; ok && jti != "" {
		return true
	}
	_, ok := l.sessions[sid]
	return ok && sid != ""
}

// Sweep drops entries whose tokens have all expired by now.
func (l *InMemoryRevocationList) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sweep(l.tokens, now) + sweep(l.sessions, now)
}

func sweep(entries map[string]time.Time, now time.Time) int {
	removed := 0
	for k, until := range entries {
		if now.After(until) {
			delete(entries, k)
			removed++
		}
	}
	return removed
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
