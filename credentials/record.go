package credentials

import (
	"time"

	"github.com/jrsteele09/go-session-client/session"
)

// Record is the persisted session: token, refresh token and cached user.
type Record struct {
	Token        string
	RefreshToken string
	User         *session.AuthUser
}

// Complete reports whether the record can restore a session.
func (r Record) Complete() bool {
	return r.Token != "" && r.User != nil
}

// Handshake is the transient OAuth state kept between redirect-out and callback-in.
type Handshake struct {
	Nonce     string
	Provider  string
	CreatedAt time.Time
}

// Expired reports whether the handshake is older than ttl at now.
func (h Handshake) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || h.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(h.CreatedAt) > ttl
}
