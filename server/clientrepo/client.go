package clientrepo

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var (
	ErrNotFound     = errors.New("client not found")
	ErrInvalidScope = errors.New("invalid scope")
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (CLIs, SPAs, mobile apps)
)

// Client is an application registered with the development provider.
type Client struct {
	ID           string     `json:"id"`
	Type         ClientType `json:"type"`
	Description  string     `json:"description"`
	RedirectURIs []string   `json:"redirectURIs"`
	Scopes       []string   `json:"scopes"` // Allowed scopes for this client
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidateScopes checks a space separated scope parameter. An empty
// parameter is allowed.
func (c *Client) ValidateScopes(requested string) error {
	for _, scope := range strings.Fields(requested) {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

// AllowsRedirect reports whether uri is registered. Loopback redirects
// match on scheme, host and path with any port, since native clients
// listen on whatever port is free.
func (c *Client) AllowsRedirect(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil || !u.IsAbs() {
		return false
	}
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
		r, err := url.Parse(registered)
		if err != nil {
			continue
		}
		if isLoopback(r.Hostname()) && isLoopback(u.Hostname()) &&
			r.Scheme == u.Scheme && r.Path == u.Path && u.RawQuery == "" {
			return true
		}
	}
	return false
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
