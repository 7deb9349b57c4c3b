package refresh

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("refresh token not found")

// StoredRefreshToken is the server side record behind an opaque refresh
// token. The client only ever sees Token.
type StoredRefreshToken struct {
	Token     string
	UserID    string
	SessionID string    // shared by every rotation of one login
	Iat       time.Time // issued at
}

// Repo stores refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteSession(sessionID string) (int, error)
}
