// Package account turns a user's stored credentials into authenticated
// Gradescope and Google Calendar clients, and records linking and
// unlinking of those accounts.
//
// A credential that the remote service rejects marks the account unlinked
// so the user is asked to link it again; transport failures never do.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/gradecal/internal/gcal"
	"github.com/tonimelisma/gradecal/internal/gradescope"
	"github.com/tonimelisma/gradecal/internal/store"
	"github.com/tonimelisma/gradecal/internal/sync"
)

// ErrTokenRejected means a session token offered for linking is not live.
var ErrTokenRejected = errors.New("account: gradescope token rejected")

// Store is the credential storage the Connector needs. Satisfied by
// *store.Store.
type Store interface {
	Credentials(ctx context.Context, userID string) (*store.Credentials, error)
	SetGradescopeToken(ctx context.Context, userID, token string) error
	SetGradescopeLogin(ctx context.Context, userID, email, password string) error
	ClearGradescopeLogin(ctx context.Context, userID string) error
	SetGradescopeLinked(ctx context.Context, userID string, linked bool) error
	SetGoogleRefreshToken(ctx context.Context, userID, token string) error
	SetGoogleLinked(ctx context.Context, userID string, linked bool) error
}

// Config holds the options for NewConnector.
type Config struct {
	Store      Store
	Gradescope *gradescope.Client
	OAuth      *oauth2.Config
	Calendar   gcal.ServiceOptions
	Logger     *slog.Logger
}

// Connector builds per-user clients from stored credentials. It implements
// sync.Connector.
type Connector struct {
	store      Store
	gradescope *gradescope.Client
	oauth      *oauth2.Config
	calendar   gcal.ServiceOptions
	logger     *slog.Logger
}

// NewConnector creates a Connector.
func NewConnector(cfg Config) *Connector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	calOpts := cfg.Calendar
	if calOpts.Logger == nil {
		calOpts.Logger = logger
	}

	return &Connector{
		store:      cfg.Store,
		gradescope: cfg.Gradescope,
		oauth:      cfg.OAuth,
		calendar:   calOpts,
		logger:     logger,
	}
}

// Source returns a Gradescope session for the user.
func (c *Connector) Source(ctx context.Context, userID string) (sync.Source, error) {
	token, err := c.GradescopeToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	return c.gradescope.Session(token), nil
}

// Calendar returns the user's Google Calendar service.
func (c *Connector) Calendar(ctx context.Context, userID string) (sync.CalendarService, error) {
	svc, err := c.GoogleService(ctx, userID)
	if err != nil {
		return nil, err
	}

	return svc, nil
}

// GradescopeToken returns a live session token for the user. An expired
// token is renewed with the stored email and password when there are any.
// When neither works the account is unlinked and sync.ErrInvalidAuth is
// returned.
func (c *Connector) GradescopeToken(ctx context.Context, userID string) (string, error) {
	creds, err := c.store.Credentials(ctx, userID)
	if err != nil {
		return "", err
	}

	if !creds.GradescopeLinked {
		return "", fmt.Errorf("%w: gradescope account not linked", sync.ErrInvalidAuth)
	}

	ok, err := c.gradescope.CheckToken(ctx, creds.GradescopeToken)
	if err != nil {
		return "", fmt.Errorf("account: checking gradescope token: %w", err)
	}

	if ok {
		return creds.GradescopeToken, nil
	}

	if !creds.HasGradescopeLogin() {
		c.logger.Info("gradescope token expired, no stored login", slog.String("user", userID))
		return "", c.unlinkGradescope(ctx, userID)
	}

	token, _, err := c.gradescope.Login(ctx, creds.GradescopeEmail, creds.GradescopePassword)
	if errors.Is(err, gradescope.ErrLoginFailed) {
		c.logger.Info("stored gradescope login rejected", slog.String("user", userID))
		return "", c.unlinkGradescope(ctx, userID)
	}

	if err != nil {
		return "", fmt.Errorf("account: renewing gradescope token: %w", err)
	}

	if err := c.replaceToken(ctx, userID, creds.GradescopeToken, token); err != nil {
		return "", err
	}

	c.logger.Info("gradescope token renewed", slog.String("user", userID))

	return token, nil
}

func (c *Connector) unlinkGradescope(ctx context.Context, userID string) error {
	if err := c.store.SetGradescopeLinked(ctx, userID, false); err != nil {
		return err
	}

	return fmt.Errorf("%w: gradescope session expired", sync.ErrInvalidAuth)
}

// replaceToken stores token and logs out the session it replaces. The
// logout is best-effort.
func (c *Connector) replaceToken(ctx context.Context, userID, old, token string) error {
	if err := c.store.SetGradescopeToken(ctx, userID, token); err != nil {
		return err
	}

	if old == "" || old == token {
		return nil
	}

	if err := c.gradescope.Logout(ctx, old); err != nil {
		c.logger.Warn("logging out replaced gradescope session",
			slog.String("user", userID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// LinkGradescopeToken links the user's Gradescope account with a session
// token copied from a browser. Any stored email and password are deleted.
func (c *Connector) LinkGradescopeToken(ctx context.Context, userID, token string) error {
	creds, err := c.store.Credentials(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := c.gradescope.CheckToken(ctx, token)
	if err != nil {
		return fmt.Errorf("account: checking gradescope token: %w", err)
	}

	if !ok {
		return ErrTokenRejected
	}

	if err := c.replaceToken(ctx, userID, creds.GradescopeToken, token); err != nil {
		return err
	}

	return c.store.ClearGradescopeLogin(ctx, userID)
}

// LinkGradescopeLogin signs in with email and password and links the
// resulting session. The email and password are kept for renewing the
// session only when remember is set. It returns the session's expiry,
// which is zero when unknown.
func (c *Connector) LinkGradescopeLogin(ctx context.Context, userID, email, password string, remember bool) (time.Time, error) {
	creds, err := c.store.Credentials(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}

	token, expires, err := c.gradescope.Login(ctx, email, password)
	if err != nil {
		return time.Time{}, err
	}

	if err := c.replaceToken(ctx, userID, creds.GradescopeToken, token); err != nil {
		return time.Time{}, err
	}

	if remember {
		err = c.store.SetGradescopeLogin(ctx, userID, email, password)
	} else {
		err = c.store.ClearGradescopeLogin(ctx, userID)
	}

	if err != nil {
		return time.Time{}, err
	}

	return expires, nil
}

// LinkGoogle stores the refresh token issued by the OAuth2 flow and marks
// the Google account linked.
func (c *Connector) LinkGoogle(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("account: empty google refresh token")
	}

	return c.store.SetGoogleRefreshToken(ctx, userID, refreshToken)
}

// GoogleService returns a calendar service authorized by the user's stored
// refresh token. A token Google rejects unlinks the account and returns
// sync.ErrInvalidGoogleAuth. Rotated refresh tokens are persisted.
func (c *Connector) GoogleService(ctx context.Context, userID string) (*gcal.Service, error) {
	creds, err := c.store.Credentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !creds.GoogleLinked || creds.GoogleRefreshToken == "" {
		return nil, fmt.Errorf("%w: google account not linked", sync.ErrInvalidGoogleAuth)
	}

	onRotate := func(refreshToken string) {
		// Rotation can happen after the pass context is gone.
		if err := c.store.SetGoogleRefreshToken(context.WithoutCancel(ctx), userID, refreshToken); err != nil {
			c.logger.Error("persisting rotated google refresh token",
				slog.String("user", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	ts, err := gcal.TokenSource(ctx, c.oauth, creds.GoogleRefreshToken, onRotate, c.logger)
	if errors.Is(err, gcal.ErrRefreshFailed) {
		c.logger.Info("google refresh token rejected", slog.String("user", userID))

		if linkErr := c.store.SetGoogleLinked(ctx, userID, false); linkErr != nil {
			return nil, linkErr
		}

		return nil, fmt.Errorf("%w: %w", sync.ErrInvalidGoogleAuth, err)
	}

	if err != nil {
		return nil, err
	}

	return gcal.NewService(ctx, ts, c.calendar)
}
