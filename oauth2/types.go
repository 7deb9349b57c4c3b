package oauth2

// ResponseType is the OAuth 2.0 response_type sent to the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType requests an authorization code, exchanged later by the Auth API.
	CodeResponseType ResponseType = "code"
)

// ResponseModeType denotes how the provider returns the authorization response
// to the redirect URI.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	// Example: http://localhost:8765/callback?code=ABC123&state=xyz
	QueryResponseMode ResponseModeType = "query"

	// FormPostResponseMode returns parameters in an auto-submitted POST form,
	// keeping them out of browser history.
	FormPostResponseMode ResponseModeType = "form_post"
)

// Valid reports whether the mode is one the callback listener accepts.
func (m ResponseModeType) Valid() bool {
	return m == "" || m == QueryResponseMode || m == FormPostResponseMode
}
