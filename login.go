package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tonimelisma/gradecal/internal/account"
	"github.com/tonimelisma/gradecal/internal/gcal"
	"github.com/tonimelisma/gradecal/internal/gradescope"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Link a user's Gradescope or Google account",
	}

	cmd.AddCommand(newLoginGradescopeCmd())
	cmd.AddCommand(newLoginGoogleCmd())

	return cmd
}

func newLoginGradescopeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradescope <user>",
		Short: "Link a Gradescope account",
		Long: `Link a Gradescope account with a session token or an email and password.

--token takes the value of the signed_token cookie from a logged-in browser.
--email logs in and keeps the session token; the password is read from the
terminal, or from stdin with --password-stdin. With --store-credentials the
email and password are also kept so an expired session is renewed without
asking again. They are stored unencrypted in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: runLoginGradescope,
	}

	cmd.Flags().String("token", "", "Gradescope session token")
	cmd.Flags().String("email", "", "Gradescope account email")
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin")
	cmd.Flags().Bool("store-credentials", false, "keep email and password to renew expired sessions")
	cmd.MarkFlagsMutuallyExclusive("token", "email")
	cmd.MarkFlagsOneRequired("token", "email")
	cmd.MarkFlagsMutuallyExclusive("token", "store-credentials")

	return cmd
}

func runLoginGradescope(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()
	uid := args[0]

	token, _ := cmd.Flags().GetString("token")
	email, _ := cmd.Flags().GetString("email")
	remember, _ := cmd.Flags().GetBool("store-credentials")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	var password string

	if email != "" {
		var err error

		password, err = readPassword(fromStdin)
		if err != nil {
			return err
		}
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.close()

	if token != "" {
		if err := a.connector.LinkGradescopeToken(ctx, uid, token); err != nil {
			if errors.Is(err, account.ErrTokenRejected) {
				return fmt.Errorf("gradescope rejected the token: log in again in the browser and copy a fresh signed_token")
			}

			return err
		}

		cc.Statusf("Gradescope account linked for %s.\n", uid)

		return nil
	}

	expires, err := a.connector.LinkGradescopeLogin(ctx, uid, email, password, remember)
	if errors.Is(err, gradescope.ErrLoginFailed) {
		return fmt.Errorf("gradescope login failed: check the email and password")
	}

	if err != nil {
		return err
	}

	cc.Statusf("Gradescope account linked for %s.\n", uid)

	if !expires.IsZero() {
		cc.Statusf("Session valid until %s.\n", formatTime(expires))
	}

	return nil
}

// readPassword reads a password from the terminal without echo, or one line
// from stdin.
func readPassword(fromStdin bool) (string, error) {
	fd := int(os.Stdin.Fd())

	if fromStdin || !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password from stdin: %w", err)
		}

		return strings.TrimRight(line, "\r\n"), nil
	}

	// The prompt must be visible even with --quiet.
	fmt.Fprint(os.Stderr, "Gradescope password: ")

	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(pw), nil
}

func newLoginGoogleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "google <user>",
		Short: "Link a Google account through the browser",
		Long: `Open the Google consent page in a browser and link the account that
grants access. The callback is served on 127.0.0.1; only the refresh token
is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: runLoginGoogle,
	}

	cmd.Flags().Bool("no-browser", false, "print the consent URL instead of opening a browser")

	return cmd
}

func runLoginGoogle(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	uid := args[0]

	if err := requireGoogleClient(cc.Cfg); err != nil {
		return err
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.close()

	// Fail before the browser round trip rather than after it.
	if ok, err := a.store.HasUser(ctx, uid); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("unknown user %s: run 'gradecal user add %s' first", uid, uid)
	}

	open := openBrowser
	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); noBrowser {
		open = func(string) error { return errors.New("browser disabled") }
	}

	oauthCfg := gcal.OAuthConfig(cc.Cfg.Google.ClientID, cc.Cfg.Google.ClientSecret, "")

	tok, err := gcal.LoginWithBrowser(ctx, oauthCfg, open, cc.Logger)
	if err != nil {
		return err
	}

	if err := a.connector.LinkGoogle(ctx, uid, tok.RefreshToken); err != nil {
		return err
	}

	cc.Statusf("Google account linked for %s.\n", uid)

	return nil
}

// openBrowser opens url with the platform's default handler.
func openBrowser(url string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}

	return exec.Command(name, url).Start() //nolint:gosec // url is built by the oauth2 config
}
