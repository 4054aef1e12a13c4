package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"google.golang.org/api/option"

	"github.com/tonimelisma/gradecal/internal/account"
	"github.com/tonimelisma/gradecal/internal/config"
	"github.com/tonimelisma/gradecal/internal/gcal"
	"github.com/tonimelisma/gradecal/internal/gradescope"
	"github.com/tonimelisma/gradecal/internal/store"
	"github.com/tonimelisma/gradecal/internal/sync"
)

// stateDirPermissions keeps the database (which holds credentials) private.
const stateDirPermissions = 0o700

// errGoogleClientMissing is returned by commands that talk to Google when
// no OAuth client is configured.
var errGoogleClientMissing = errors.New(
	"google client not configured: set google.client_id and google.client_secret " +
		"or GRADECAL_GOOGLE_CLIENT_ID and GRADECAL_GOOGLE_CLIENT_SECRET")

// app is the wired dependency graph one command works with.
type app struct {
	store     *store.Store
	connector *account.Connector
	runner    *sync.Runner
}

// openApp opens the store and wires the clients from cfg. The caller must
// call close.
func openApp(ctx context.Context, cc *CLIContext) (*app, error) {
	st, err := openStore(ctx, cc)
	if err != nil {
		return nil, err
	}

	connector := newConnector(cc.Cfg, st, cc)

	return &app{
		store:     st,
		connector: connector,
		runner:    newRunner(cc.Cfg, st, connector, cc),
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

// openStore opens the database under the configured state directory,
// creating the directory if needed.
func openStore(ctx context.Context, cc *CLIContext) (*store.Store, error) {
	if err := os.MkdirAll(cc.Cfg.StatePath(), stateDirPermissions); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	return store.Open(ctx, cc.Cfg.DatabasePath(), cc.Logger)
}

func newConnector(cfg *config.Config, st *store.Store, cc *CLIContext) *account.Connector {
	ua := userAgent(cfg)

	return account.NewConnector(account.Config{
		Store: st,
		Gradescope: gradescope.NewClient(gradescope.Config{
			BaseURL:    cfg.Gradescope.BaseURL,
			HTTPClient: newHTTPClient(cfg),
			UserAgent:  ua,
			Workers:    cfg.Gradescope.Workers,
			Logger:     cc.Logger,
		}),
		OAuth: gcal.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL),
		Calendar: gcal.ServiceOptions{
			Workers:           cfg.Calendar.Workers,
			RequestsPerSecond: cfg.Calendar.RequestsPerSecond,
			Logger:            cc.Logger,
			ClientOptions:     []option.ClientOption{option.WithUserAgent(ua)},
		},
		Logger: cc.Logger,
	})
}

func newRunner(cfg *config.Config, st *store.Store, connector *account.Connector, cc *CLIContext) *sync.Runner {
	return sync.NewRunner(&sync.PassConfig{
		Store:         st,
		Connector:     connector,
		SourceBaseURL: cfg.Gradescope.BaseURL,
		FetchTimeout:  cfg.Sync.FetchTimeoutDuration(),
		BatchTimeout:  cfg.Sync.BatchTimeoutDuration(),
		Logger:        cc.Logger,
	})
}

// newHTTPClient returns a client whose dials are bounded by the configured
// connect timeout. Request lifetimes are bounded by contexts instead.
func newHTTPClient(cfg *config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.Network.ConnectTimeoutDuration(),
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &http.Client{Transport: transport}
}

func userAgent(cfg *config.Config) string {
	if cfg.Network.UserAgent != "" {
		return cfg.Network.UserAgent
	}

	return "gradecal/" + version
}

func requireGoogleClient(cfg *config.Config) error {
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return errGoogleClientMissing
	}

	return nil
}
