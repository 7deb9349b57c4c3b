package oauth2

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

const DefaultNonceLength = 32

// NewNonce returns n random bytes as a base64url string, for use as the
// OAuth state parameter.
func NewNonce(n int) (string, error) {
	if n <= 0 {
		n = DefaultNonceLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "NewNonce rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
