package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type appKey struct{}

// NewRootCommand builds the sessionctl command tree. Every subcommand gets
// an app whose session has already been bootstrapped from the store.
func NewRootCommand(cfg config.Config) *cobra.Command {
	return newRootCommand(cfg, appOptions{})
}

func newRootCommand(cfg config.Config, opts appOptions) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Manage the client session and project selection",
		Long: `sessionctl drives the client session lifecycle from the command line.

It restores the persisted session on start, then signs in with a password or
a federated provider, refreshes tokens, signs out and manages the selected
project.

Examples:
  sessionctl login --email user@example.com --password secret
  sessionctl oauth login github
  sessionctl projects list
  sessionctl logout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), logLevel)
			if opts.navigator == nil {
				opts.navigator = newBrowserNavigator(cmd.ErrOrStderr(), openBrowser(cmd))
			}
			a, err := newApp(cfg, cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			if err := a.auth.Bootstrap(cmd.Context()); err != nil {
				log.Debug().Err(err).Msg("Bootstrap did not restore a session")
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
				a.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", cfg.GetLogLevel(), "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("no-browser", false, "print authorization URLs instead of opening a browser")

	root.AddCommand(newStatusCommand(), newLoginCommand(), newOAuthCommand(), newRefreshCommand(), newLogoutCommand(), newProjectsCommand())
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	config.LoadDotenv()
	return NewRootCommand(config.New()).ExecuteContext(ctx)
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func openBrowser(cmd *cobra.Command) bool {
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	return !noBrowser
}

func setupLogging(w io.Writer, level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the restored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			printSession(cmd.OutOrStdout(), appFrom(cmd).auth.Current())
			return nil
		},
	}
}

func printSession(w io.Writer, s session.Session) {
	fmt.Fprintf(w, "State:   %s\n", s.State)
	if s.User != nil {
		fmt.Fprintf(w, "User:    %s (%s)\n", s.User.Email, s.User.ID)
		if s.User.Role != "" {
			fmt.Fprintf(w, "Role:    %s\n", s.User.Role)
		}
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Expires: %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	}
	if s.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", s.Error)
	}
}

// userError replaces err with its user-facing message when it carries one.
func userError(err error) error {
	var ue *sessionerrors.UserError
	if !errors.As(err, &ue) {
		return err
	}
	log.Debug().Err(err).Msg("Command failed")
	return errors.New(ue.Message)
}
