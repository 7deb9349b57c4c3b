package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/oauth2"
	"github.com/jrsteele09/go-session-client/server/authcoderepo"
	"github.com/rs/zerolog/log"
)

var formPostTmpl = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html><head><title>Submit This Form</title></head>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.RedirectURI}}">
{{range $k, $v := .Params}}<input type="hidden" name="{{$k}}" value="{{index $v 0}}"/>
{{end}}<noscript><button type="submit">Continue</button></noscript>
</form>
</body></html>`))

// Authorize is a development OAuth provider. It signs the user named by
// login_hint (or the demo user) in without a prompt and sends an
// authorization code back to redirect_uri. simulate_error returns that
// error instead, e.g. access_denied.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		q := r.URL.Query()

		redirectURI := q.Get("redirect_uri")
		u, err := url.Parse(redirectURI)
		if err != nil || !u.IsAbs() {
			http.Error(w, "Invalid authorization request: redirect_uri must be absolute", http.StatusBadRequest)
			return
		}
		if q.Get("client_id") == "" {
			http.Error(w, "Invalid authorization request: client_id is required", http.StatusBadRequest)
			return
		}
		client, err := s.repos.Clients.Get(q.Get("client_id"))
		if err != nil {
			http.Error(w, "Invalid authorization request: unknown client_id", http.StatusBadRequest)
			return
		}
		// An unregistered redirect_uri is never redirected to.
		if !client.AllowsRedirect(redirectURI) {
			http.Error(w, "Invalid authorization request: redirect_uri is not registered", http.StatusBadRequest)
			return
		}
		mode := oauth2.ResponseModeType(q.Get("response_mode"))
		if !mode.Valid() {
			http.Error(w, "Invalid authorization request: unsupported response_mode", http.StatusBadRequest)
			return
		}

		params := url.Values{}
		if state := q.Get("state"); state != "" {
			params.Set("state", state)
		}

		switch {
		case q.Get("simulate_error") != "":
			params.Set("error", q.Get("simulate_error"))
			params.Set("error_description", "simulated by the development provider")
		case oauth2.ResponseType(q.Get("response_type")) != oauth2.CodeResponseType:
			params.Set("error", "unsupported_response_type")
		case client.ValidateScopes(q.Get("scope")) != nil:
			params.Set("error", "invalid_scope")
		default:
			email := q.Get("login_hint")
			if email == "" {
				email = s.config.GetDemoEmail()
			}
			code := uuid.New().String()
			if err := s.repos.AuthCodes.Upsert(code, &authcoderepo.AuthCode{
				Provider:    provider,
				Email:       email,
				RedirectURI: redirectURI,
				CreatedAt:   s.nowFunc(),
			}); err != nil {
				log.Err(err).Msg("Failed to store authorization code")
				http.Error(w, "Failed to issue authorization code", http.StatusInternalServerError)
				return
			}
			params.Set("code", code)
		}

		if err := callbackRedirect(w, r, u, mode, params); err != nil {
			http.Error(w, "Failed to redirect to client: "+err.Error(), http.StatusInternalServerError)
		}
	}
}

// callbackRedirect sends the authorization response to the client's
// redirect URI using the requested response mode.
func callbackRedirect(w http.ResponseWriter, r *http.Request, u *url.URL, responseMode oauth2.ResponseModeType, params url.Values) error {
	switch responseMode {
	case oauth2.FormPostResponseMode:
		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusOK)
		data := struct {
			RedirectURI string
			Params      url.Values
		}{
			RedirectURI: u.String(),
			Params:      params,
		}
		if err := formPostTmpl.Execute(w, data); err != nil {
			return fmt.Errorf("[callbackRedirect] render form_post: %w", err)
		}

	default: // QueryResponseMode or empty (default)
		q := u.Query()
		for k, v := range params {
			q[k] = v
		}
		u.RawQuery = q.Encode()
		http.Redirect(w, r, u.String(), http.StatusSeeOther)
	}
	return nil
}
