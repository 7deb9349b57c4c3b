package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrRevokedToken = errors.New("access token revoked")
)

// Claims are the access token claims. SessionID ties the token to the
// refresh token family it was issued with.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
	ID        string
}

type Manager struct {
	signer            Signer
	issuer            string
	audience          string
	revocations       RevocationList
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func WithRevocationList(list RevocationList) ManagerOption {
	return func(m *Manager) {
		m.revocations = list
	}
}

func New(signer Signer, options ...ManagerOption) (*Manager, error) {
	if signer == nil {
		return nil, errors.New("[token.New] signer is required")
	}
	m := &Manager{
		signer:      signer,
		revocations: NewInMemoryRevocationList(),
	}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 15 * time.Minute
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

// CreateAccessToken issues a signed access token for user within sessionID.
func (c *Manager) CreateAccessToken(user *users.User, sessionID string) (*AccessToken, error) {
	if user == nil || user.ID == "" {
		return nil, errors.New("[CreateAccessToken] user is required")
	}
	now := c.nowFunc()
	exp := now.Add(c.accessTokenExpiry)
	jti := uuid.New().String()

	claims := Claims{
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[CreateAccessToken] sign")
	}
	// JWT timestamps carry whole seconds.
	return &AccessToken{Token: signed, ExpiresAt: exp.Truncate(time.Second), ID: jti}, nil
}

// Verify parses rawToken and rejects it when the signature, expiry, issuer
// or audience do not check out, or when it has been revoked.
func (c *Manager) Verify(rawToken string) (*Claims, error) {
	claims, err := c.parse(rawToken)
	if err != nil {
		return nil, err
	}
	if c.revocations.IsRevoked(claims.ID, claims.SessionID) {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// RevokeAccessToken revokes rawToken and, when it carries a session id, every
// other access token issued to that session. Tokens rotated by a refresh
// therefore stop working at logout too. Expired entries are swept on the way.
func (c *Manager) RevokeAccessToken(rawToken string) (*Claims, error) {
	claims, err := c.parse(rawToken)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.Wrap(ErrInvalidToken, "token missing jti claim")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.Wrap(ErrInvalidToken, "token missing exp claim")
	}

	now := c.nowFunc()
	if n := c.revocations.Sweep(now); n > 0 {
		log.Debug().Int("removed", n).Msg("Swept expired revocations")
	}
	if err := c.revocations.RevokeToken(claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, errors.Wrap(err, "[RevokeAccessToken] revoke token")
	}
	if claims.SessionID != "" {
		// No token of this session outlives a fresh one issued now.
		if err := c.revocations.RevokeSession(claims.SessionID, now.Add(c.accessTokenExpiry)); err != nil {
			return nil, errors.Wrap(err, "[RevokeAccessToken] revoke session")
		}
	}
	return claims, nil
}

// CleanupRevokedTokens removes revocations whose tokens have all expired.
func (c *Manager) CleanupRevokedTokens() int {
	return c.revocations.Sweep(c.nowFunc())
}

func (c *Manager) parse(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(rawToken, claims, c.signer.GetVerificationKey, opts...)
	if err != nil || !tok.Valid {
		return nil, errors.Wrapf(ErrInvalidToken, "%v", err)
	}
	return claims, nil
}
