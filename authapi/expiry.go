package authapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryFromToken reads the exp claim without verifying the signature.
func ExpiryFromToken(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
