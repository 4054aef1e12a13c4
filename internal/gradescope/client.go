package gradescope

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Gradescope site.
const DefaultBaseURL = "https://www.gradescope.com"

// tokenCookie is the session cookie Gradescope authenticates with.
const tokenCookie = "signed_token"

// Retry and backoff constants.
const (
	maxRetries     = 3
	baseBackoff    = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	defaultWorkers = 4
	maxPageBytes   = 8 << 20
)

// Config holds the options for NewClient.
type Config struct {
	BaseURL    string       // "" uses DefaultBaseURL
	HTTPClient *http.Client // nil uses a client with no timeout; requests carry ctx
	UserAgent  string
	Workers    int // concurrent course page fetches per user
	Logger     *slog.Logger
}

// Client talks to Gradescope. It holds no credentials; Session binds one
// token to it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	noRedirect *http.Client // same transport, surfaces 3xx responses
	userAgent  string
	workers    int
	logger     *slog.Logger

	// sleepFunc is called to wait between retries. Tests override it to
	// avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	noRedirect := *httpClient
	noRedirect.Jar = nil
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		noRedirect: &noRedirect,
		userAgent:  cfg.UserAgent,
		workers:    workers,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// URL resolves a site-relative href.
func (c *Client) URL(href string) string {
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}

	return c.baseURL + href
}

// getPage fetches href with the session token, retrying transient failures,
// and returns the body. Any non-200 response is an *HTTPError.
func (c *Client) getPage(ctx context.Context, token, href string) ([]byte, error) {
	url := c.URL(href)

	var attempt int
	for {
		body, status, header, err := c.getOnce(ctx, token, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("gradescope: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("url", url),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("gradescope: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("gradescope: GET %s failed after %d retries: %w", url, maxRetries, err)
		}

		if status == http.StatusOK {
			c.logger.Debug("page fetched", slog.String("url", url), slog.Int("bytes", len(body)))
			return body, nil
		}

		if isRetryable(status) && attempt < maxRetries {
			backoff, ok := retryAfter(header)
			if !ok {
				backoff = c.calcBackoff(attempt)
			}

			c.logger.Warn("retrying after HTTP error",
				slog.String("url", url),
				slog.Int("status", status),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("gradescope: request canceled: %w", err)
			}

			attempt++

			continue
		}

		return nil, &HTTPError{StatusCode: status, URL: url, Err: classifyStatus(status)}
	}
}

func (c *Client) getOnce(ctx context.Context, token, url string) ([]byte, int, http.Header, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, 0, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("reading body: %w", err)
	}

	return body, resp.StatusCode, resp.Header, nil
}

// newRequest builds a request carrying the session cookie, if any.
func (c *Client) newRequest(ctx context.Context, method, url, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("gradescope: creating request: %w", err)
	}

	if token != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return req, nil
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) (time.Duration, bool) {
	seconds, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0, false
	}

	return time.Duration(seconds) * time.Second, true
}
