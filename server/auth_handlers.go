package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/server/authcoderepo"
	"github.com/jrsteele09/go-session-client/token/refresh"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type exchangeRequest struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginHandler checks email and password and opens a new session.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
			writeJSONError(w, "invalid_request", "email and password are required", http.StatusBadRequest)
			return
		}

		user, err := s.repos.Users.GetByEmail(req.Email)
		if err != nil || !user.CheckPassword(req.Password) {
			writeJSONError(w, "invalid_credentials", "invalid email or password", http.StatusUnauthorized)
			return
		}
		if user.Blocked {
			writeJSONError(w, "access_denied", "account is blocked", http.StatusForbidden)
			return
		}
		s.openSession(w, user)
	}
}

// ExchangeHandler redeems an authorization code issued by Authorize.
func (s *Server) ExchangeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req exchangeRequest
		if err := decodeJSON(w, r, &req); err != nil || req.Provider == "" || req.Code == "" {
			writeJSONError(w, "invalid_request", "provider and code are required", http.StatusBadRequest)
			return
		}

		authCode, err := s.repos.AuthCodes.Take(req.Code)
		if err != nil {
			writeJSONError(w, "invalid_grant", "unknown or used authorization code", http.StatusUnauthorized)
			return
		}
		switch {
		case authCode.Provider != req.Provider:
			writeJSONError(w, "invalid_grant", "code was issued for another provider", http.StatusUnauthorized)
			return
		case authCode.RedirectURI != req.RedirectURI:
			writeJSONError(w, "invalid_grant", "redirect uri mismatch", http.StatusUnauthorized)
			return
		case s.nowFunc().Sub(authCode.CreatedAt) > s.authCodeTTL:
			writeJSONError(w, "invalid_grant", "authorization code expired", http.StatusUnauthorized)
			return
		}

		user, err := s.federatedUser(authCode)
		if err != nil {
			log.Err(err).Str("provider", authCode.Provider).Msg("Failed to resolve federated user")
			writeJSONError(w, "server_error", "could not resolve user", http.StatusInternalServerError)
			return
		}
		if user.Blocked {
			writeJSONError(w, "access_denied", "account is blocked", http.StatusForbidden)
			return
		}
		s.openSession(w, user)
	}
}

// RefreshHandler rotates a refresh token. The old token stops working.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, "invalid_request", "refreshToken is required", http.StatusBadRequest)
			return
		}

		rt, next, err := s.refreshTokens.Rotate(req.RefreshToken)
		if err != nil {
			if !errors.Is(err, refresh.ErrNotFound) && !errors.Is(err, refresh.ErrExpired) {
				log.Err(err).Msg("Failed to rotate refresh token")
			}
			writeJSONError(w, "invalid_grant", "invalid refresh token", http.StatusUnauthorized)
			return
		}

		user, err := s.repos.Users.GetByID(rt.UserID)
		if err != nil || user.Blocked {
			if _, revokeErr := s.refreshTokens.RevokeSession(rt.SessionID); revokeErr != nil {
				log.Err(revokeErr).Msg("Failed to revoke session")
			}
			writeJSONError(w, "invalid_grant", "user is not active", http.StatusUnauthorized)
			return
		}

		at, err := s.tokens.CreateAccessToken(user, rt.SessionID)
		if err != nil {
			log.Err(err).Msg("Failed to create access token")
			writeJSONError(w, "server_error", "could not issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, authapi.AuthResponse{
			Token:        at.Token,
			RefreshToken: next,
			ExpiresAt:    &at.ExpiresAt,
			User:         user.AuthUser(),
		})
	}
}

// LogoutHandler revokes the bearer token and every refresh token of its session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.tokens.RevokeAccessToken(accessTokenFrom(r.Context()))
		if err != nil {
			writeJSONError(w, "unauthorized", "Invalid token", http.StatusUnauthorized)
			return
		}
		n, err := s.refreshTokens.RevokeSession(claims.SessionID)
		if err != nil {
			log.Err(err).Msg("Failed to revoke refresh tokens")
		}
		log.Debug().Str("user_id", claims.Subject).Int("refresh_tokens", n).Msg("Session logged out")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			writeJSONError(w, "unauthorized", "Invalid token", http.StatusUnauthorized)
			return
		}
		user, err := s.repos.Users.GetByID(claims.Subject)
		if err != nil || user.Blocked {
			writeJSONError(w, "unauthorized", "user is not active", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user.AuthUser())
	}
}

// openSession issues an access token and a refresh token under a new
// session id and writes the Auth API response.
func (s *Server) openSession(w http.ResponseWriter, user *users.User) {
	sessionID := uuid.New().String()
	rt, err := s.refreshTokens.Create(user.ID, sessionID)
	if err != nil {
		log.Err(err).Msg("Failed to create refresh token")
		writeJSONError(w, "server_error", "could not issue token", http.StatusInternalServerError)
		return
	}
	at, err := s.tokens.CreateAccessToken(user, sessionID)
	if err != nil {
		log.Err(err).Msg("Failed to create access token")
		writeJSONError(w, "server_error", "could not issue token", http.StatusInternalServerError)
		return
	}
	if err := s.repos.Users.SetLastLogin(user.Email, s.nowFunc()); err != nil {
		log.Err(err).Str("user_id", user.ID).Msg("Failed to record last login")
	}

	writeJSON(w, http.StatusOK, authapi.AuthResponse{
		Token:        at.Token,
		RefreshToken: rt,
		ExpiresAt:    &at.ExpiresAt,
		User:         user.AuthUser(),
	})
}

// federatedUser finds the user behind an authorization code, creating it on
// first sign in and linking the provider.
func (s *Server) federatedUser(authCode *authcoderepo.AuthCode) (*users.User, error) {
	user, err := s.repos.Users.GetByEmail(authCode.Email)
	if errors.Is(err, users.ErrNotFound) {
		user = &users.User{
			Email:      authCode.Email,
			Username:   strings.SplitN(authCode.Email, "@", 2)[0],
			Role:       users.RoleMember,
			DateJoined: s.nowFunc(),
			Providers:  []string{authCode.Provider},
		}
		if err := s.repos.Users.Upsert(user); err != nil {
			return nil, err
		}
		if err := s.seedProjects(user.ID); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if !user.HasProvider(authCode.Provider) {
		user.Providers = append(user.Providers, authCode.Provider)
		user.UpdatedAt = s.nowFunc()
		if err := s.repos.Users.Upsert(user); err != nil {
			return nil, err
		}
	}
	return user, nil
}
