package credentials

// Conceptual keys of the persisted client state.
const (
	KeyToken           = "auth.token"
	KeyRefreshToken    = "auth.refreshToken"
	KeyUser            = "auth.user"
	KeySelectedProject = "project.selectedId"
	KeyOAuthNonce      = "oauth.nonce"
	KeyOAuthProvider   = "oauth.provider"
	KeyOAuthCreatedAt  = "oauth.createdAt"
)

var (
	recordKeys    = []string{KeyToken, KeyRefreshToken, KeyUser}
	handshakeKeys = []string{KeyOAuthNonce, KeyOAuthProvider, KeyOAuthCreatedAt}
)

// Store is durable key/value persistence for session artifacts.
// Implementations are synchronous; the only ordering guarantee is
// read-after-write within a process.
type Store interface {
	// Set stores value under key
	Set(key, value string) error

	// Get returns the value and whether it exists
	Get(key string) (string, bool, error)

	// Clear removes the given keys, or every key the store owns when none are given
	Clear(keys ...string) error
}

// BatchStore is implemented by stores that can write several keys atomically.
type BatchStore interface {
	Store
	SetMany(values map[string]string) error
}
