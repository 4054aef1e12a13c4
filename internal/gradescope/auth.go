package gradescope

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// CheckToken reports whether token is a live session: the account page must
// answer 200 without redirecting to the login page. Transport failures are
// returned as errors, not as an invalid token.
func (c *Client) CheckToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.URL("/account"), token, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return false, fmt.Errorf("gradescope: checking token: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("token checked", slog.Int("status", resp.StatusCode))

	return resp.StatusCode == http.StatusOK, nil
}

// Login signs in with email and password and returns the new session
// token with its expiry, which is zero when Gradescope does not say. A
// rejected login returns ErrLoginFailed.
func (c *Client) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("gradescope: creating cookie jar: %w", err)
	}

	// The authenticity token is checked against a session cookie set by
	// the login page, so both requests share a jar.
	session := *c.noRedirect
	session.Jar = jar

	csrf, err := c.loginFormToken(ctx, &session)
	if err != nil {
		return "", time.Time{}, err
	}

	form := url.Values{
		"utf8":                     {"✓"},
		"authenticity_token":       {csrf},
		"session[email]":           {email},
		"session[password]":        {password},
		"session[remember_me]":     {"1"},
		"commit":                   {"Log In"},
		"session[remember_me_sso]": {"0"},
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.URL("/login"), "", strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := session.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("gradescope: posting login: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusFound || !c.isAccountURL(resp.Header.Get("Location")) {
		c.logger.Info("gradescope login rejected", slog.Int("status", resp.StatusCode))
		return "", time.Time{}, ErrLoginFailed
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == tokenCookie && ck.Value != "" {
			c.logger.Info("gradescope login successful")
			return ck.Value, ck.Expires, nil
		}
	}

	return "", time.Time{}, fmt.Errorf("%w: no session cookie in response", ErrLoginFailed)
}

// loginFormToken loads the login page and extracts its authenticity token.
func (c *Client) loginFormToken(ctx context.Context, session *http.Client) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.URL("/login"), "", nil)
	if err != nil {
		return "", err
	}

	resp, err := session.Do(req)
	if err != nil {
		return "", fmt.Errorf("gradescope: loading login page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String(), Err: classifyStatus(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("gradescope: reading login page: %w", err)
	}

	token, ok := parseAuthenticityToken(bytes.NewReader(body))
	if !ok {
		return "", fmt.Errorf("%w: login page has no authenticity token", ErrLoginFailed)
	}

	return token, nil
}

// isAccountURL reports whether a redirect target is the account page.
func (c *Client) isAccountURL(location string) bool {
	return location == c.URL("/account") || location == "/account"
}

// Logout invalidates token. The response is ignored: a token that is
// already dead needs no logout.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.URL("/logout?tfs_mode=false"), token, nil)
	if err != nil {
		return err
	}

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return fmt.Errorf("gradescope: logging out: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("gradescope session logged out", slog.Int("status", resp.StatusCode))

	return nil
}
