package cli

import (
	"fmt"
	"io"

	"github.com/jrsteele09/go-session-client/auth"
	"github.com/rs/zerolog/log"
	"github.com/skratchdot/open-golang/open"
)

// newBrowserNavigator prints the authorization URL and, when open is set,
// hands it to the system browser. A browser that fails to start is not an
// error: the printed URL still works.
func newBrowserNavigator(w io.Writer, openBrowser bool) auth.Navigator {
	return auth.NavigatorFunc(func(url string) error {
		fmt.Fprintf(w, "Open this URL to continue signing in:\n\n  %s\n\n", url)
		if !openBrowser {
			return nil
		}
		if err := open.Run(url); err != nil {
			log.Warn().Err(err).Msg("Could not open a browser")
		}
		return nil
	})
}
