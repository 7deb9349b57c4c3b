package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

var ErrExpired = errors.New("refresh token expired")

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo        Repo
	tokenLength int
	expiry      time.Duration
	nowFunc     func() time.Time
}

type Option func(*Manager)

// WithTokenLength sets the number of random bytes per token.
func WithTokenLength(n int) Option {
	return func(m *Manager) {
		m.tokenLength = n
	}
}

func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		m.expiry = d
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(repo Repo, options ...Option) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[refresh.NewManager] repo is required")
	}
	m := &Manager{repo: repo}
	for _, opt := range options {
		opt(m)
	}
	if m.tokenLength <= 0 {
		m.tokenLength = 32 // 256 bits
	}
	if m.expiry <= 0 {
		m.expiry = 7 * 24 * time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

// Create generates a new refresh token for userID within sessionID.
func (m *Manager) Create(userID, sessionID string) (string, error) {
	tokenBytes := make([]byte, m.tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "failed to generate random bytes")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:     tokenStr,
		UserID:    userID,
		SessionID: sessionID,
		Iat:       m.nowFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "failed to store refresh token")
	}
	return tokenStr, nil
}

// Rotate consumes token and issues its replacement in the same session.
// A token is accepted once; a replayed token fails with ErrNotFound.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, string, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, "", err
	}
	if err := m.repo.Delete(token); err != nil {
		return nil, "", err
	}
	if m.IsExpired(rt) {
		return nil, "", ErrExpired
	}

	next, err := m.Create(rt.UserID, rt.SessionID)
	if err != nil {
		return nil, "", err
	}
	return rt, next, nil
}

func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// RevokeSession deletes every refresh token issued under sessionID.
func (m *Manager) RevokeSession(sessionID string) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	return m.repo.DeleteSession(sessionID)
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.expiry
}
