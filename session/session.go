package session

import "time"

// State is the authentication status of the client.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Refreshing
	Error
)

// States lists every State, in declaration order.
var States = []State{Unauthenticated, Authenticating, Authenticated, Refreshing, Error}

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	case Error:
		return "error"
	}
	return "unknown"
}

// AuthUser is the client's cached, read-only copy of the Auth API user.
type AuthUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Session is an immutable snapshot of the machine. Empty strings stand for
// absent values; Token and RefreshToken are always assigned together.
type Session struct {
	State        State
	User         *AuthUser
	Token        string
	RefreshToken string
	ExpiresAt    time.Time // zero when unknown
	IsLoading    bool
	Error        string

	// Version increments on every applied event.
	Version uint64
}

// Initial is the session at process start, before bootstrap has settled.
func Initial() Session {
	return Session{State: Unauthenticated, IsLoading: true}
}

// IsAuthenticated is true iff both a token and a user are held.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// Ready reports whether dependents may start authenticated work.
func (s Session) Ready() bool {
	return s.State == Authenticated && !s.IsLoading && s.IsAuthenticated()
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
