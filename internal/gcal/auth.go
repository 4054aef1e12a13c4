package gcal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	stdsync "sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// Scopes requested from Google: enough to list calendars for selection and
// to write events, nothing more.
var Scopes = []string{
	calendar.CalendarCalendarlistReadonlyScope,
	calendar.CalendarEventsScope,
}

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// callbackPath is the HTTP path the OAuth2 redirect hits on the local server.
const callbackPath = "/"

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// OAuthConfig builds the client configuration for the Google endpoint.
// redirectURL may be empty; LoginWithBrowser fills it with the callback port.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// TokenSource redeems a stored refresh token and returns a source that
// refreshes silently from then on. The first refresh happens eagerly so a
// revoked token is reported here as ErrRefreshFailed rather than midway
// through a pass.
//
// onRotate is called whenever Google issues a different refresh token,
// including during that first refresh, so the caller can persist it. It may
// be nil.
func TokenSource(
	ctx context.Context,
	cfg *oauth2.Config,
	refreshToken string,
	onRotate func(refreshToken string),
	logger *slog.Logger,
) (oauth2.TokenSource, error) {
	if refreshToken == "" {
		return nil, ErrRefreshFailed
	}

	base := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	src := &rotatingSource{
		src:      base,
		current:  refreshToken,
		onRotate: onRotate,
		logger:   logger,
	}

	tok, err := src.Token()
	if err != nil {
		// Only a rejection from the token endpoint means the grant is gone;
		// transport failures leave the stored token usable.
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		return nil, fmt.Errorf("gcal: refreshing token: %w", err)
	}

	logger.Debug("google token refreshed", slog.Time("expiry", tok.Expiry))

	return oauth2.ReuseTokenSource(tok, src), nil
}

// rotatingSource reports refresh-token rotation to onRotate.
type rotatingSource struct {
	src      oauth2.TokenSource
	onRotate func(string)
	logger   *slog.Logger

	mu      stdsync.Mutex
	current string
}

func (r *rotatingSource) Token() (*oauth2.Token, error) {
	tok, err := r.src.Token()
	if err != nil {
		r.logger.Warn("google token acquisition failed", slog.String("error", err.Error()))
		return nil, err
	}

	r.mu.Lock()
	rotated := tok.RefreshToken != "" && tok.RefreshToken != r.current
	if rotated {
		r.current = tok.RefreshToken
	}
	r.mu.Unlock()

	if rotated && r.onRotate != nil {
		r.logger.Info("google refresh token rotated")
		r.onRotate(tok.RefreshToken)
	}

	return tok, nil
}

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// LoginWithBrowser performs the authorization code + PKCE flow against a
// localhost callback server and returns the token. Offline access and a
// forced consent prompt make Google issue a refresh token every time.
//
// openURL is called with the authorization URL. If it fails, the URL is
// printed to stderr so the user can open it manually.
func LoginWithBrowser(
	ctx context.Context,
	cfg *oauth2.Config,
	openURL func(string) error,
	logger *slog.Logger,
) (*oauth2.Token, error) {
	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, logger)
	if err != nil {
		return nil, err
	}

	defer shutdownCallbackServer(srv, logger)

	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("gcal: generating state token: %w", err)
	}

	registerCallbackHandler(mux, state, resultCh)

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL", slog.String("error", openErr.Error()))
		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("gcal: token exchange failed: %w", err)
	}

	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("gcal: Google did not issue a refresh token")
	}

	logger.Info("google login successful", slog.Time("expiry", tok.Expiry))

	return tok, nil
}

// startCallbackServer binds to 127.0.0.1:0 and serves mux.
func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("gcal: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("gcal: listener address is not TCP")
	}

	logger.Info("callback server listening", slog.Int("port", tcpAddr.Port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: fmt.Errorf("gcal: callback server error: %w", serveErr)}:
			default:
			}
		}
	}()

	return srv, tcpAddr.Port, nil
}

// registerCallbackHandler adds the callback route to the mux.
func registerCallbackHandler(mux *http.ServeMux, state string, resultCh chan<- callbackResult) {
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, state, resultCh)
	})
}

// handleOAuthCallback validates the state, extracts the code, and sends the
// result. Only the first result is kept; later hits are answered but dropped.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	send := func(res callbackResult) {
		select {
		case resultCh <- res:
		default:
		}
	}

	q := r.URL.Query()

	if q.Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("gcal: OAuth2 state mismatch (possible CSRF)")})

		return
	}

	if errParam := q.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("gcal: authorization failed: %s", errParam)})

		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("gcal: callback missing authorization code")})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Google Calendar linked</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	send(callbackResult{code: code})
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("gcal: browser auth canceled: %w", ctx.Err())
	}
}

// generateState produces a random hex string for the OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
