package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-client/auth"
	"github.com/jrsteele09/go-session-client/callback"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const landingPage = `<!DOCTYPE html><html><body><p>Signed in. You can close this window.</p></body></html>`

func newLoginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password.

The password can also be supplied through SESSION_PASSWORD so it does not
appear in shell history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SESSION_PASSWORD")
			}
			a := appFrom(cmd)
			if err := a.auth.Login(cmd.Context(), auth.Credentials{Email: email, Password: password}); err != nil {
				return userError(err)
			}
			printSession(cmd.OutOrStdout(), a.auth.Current())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", os.Getenv("SESSION_EMAIL"), "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newOAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "Sign in with a federated provider",
	}

	var timeout time.Duration
	login := &cobra.Command{
		Use:   "login <provider>",
		Short: "Sign in through the provider's authorization page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			s, err := a.oauthLogin(ctx, args[0])
			if err != nil {
				return userError(err)
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
	login.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the provider callback")

	providers := &cobra.Command{
		Use:   "providers",
		Short: "List the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			names := a.registry.Names()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No providers configured")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	cmd.AddCommand(login, providers)
	return cmd
}

// oauthLogin serves the redirect URI on the loopback listener, starts the
// provider redirect and waits for the callback to settle the session.
func (a *app) oauthLogin(ctx context.Context, provider string) (session.Session, error) {
	redirect, err := url.Parse(a.registry.RedirectURI())
	if err != nil {
		return session.Session{}, errors.Wrap(err, "[oauthLogin] redirect uri")
	}
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}
	landingPath := a.cfg.GetLandingPath()
	if landingPath == callbackPath {
		landingPath = strings.TrimSuffix(callbackPath, "/") + "/done"
	}

	handler, err := callback.NewHandler(a.auth,
		callback.WithHandshakeTimeout(a.cfg.GetHandshakeTimeout()),
		callback.WithLandingPath(landingPath),
		callback.WithMetrics(a.metrics),
	)
	if err != nil {
		return session.Session{}, err
	}

	settled := make(chan session.Session, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
		select {
		case settled <- a.machine.Current():
		default:
		}
	})
	mux.HandleFunc(landingPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(landingPage))
	})

	listener, err := net.Listen("tcp", a.cfg.GetCallbackListenAddr())
	if err != nil {
		return session.Session{}, errors.Wrap(err, "[oauthLogin] listen for callback")
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("Callback listener stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if _, err := a.auth.LoginWithOAuth(ctx, provider); err != nil {
		return session.Session{}, err
	}

	select {
	case s := <-settled:
		if s.State == session.Error {
			return s, errors.New(s.Error)
		}
		return s, nil
	case <-ctx.Done():
		return session.Session{}, errors.Wrap(ctx.Err(), "[oauthLogin] waiting for callback")
	}
}

func newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.auth.RefreshToken(cmd.Context()); err != nil {
				return userError(err)
			}
			printSession(cmd.OutOrStdout(), a.auth.Current())
			return nil
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
