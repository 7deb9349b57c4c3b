package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-client/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores parsed token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyAccessToken stores the raw bearer token
	ContextKeyAccessToken ContextKey = "access_token"
)

// RequireAuth is middleware that validates a Bearer access token
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "unauthorized", "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				writeJSONError(w, "unauthorized", "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := s.tokens.Verify(parts[1])
			if err != nil {
				writeJSONError(w, "unauthorized", "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			ctx = context.WithValue(ctx, ContextKeyAccessToken, parts[1])
			next(w, r.WithContext(ctx))
		}
	}
}

func claimsFrom(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

func accessTokenFrom(ctx context.Context) string {
	raw, _ := ctx.Value(ContextKeyAccessToken).(string)
	return raw
}
