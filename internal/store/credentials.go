package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Credentials are the linked-account secrets of one user. The Linked flags
// record whether the user has linked the account and it has not since been
// found invalid.
type Credentials struct {
	GradescopeLinked   bool
	GradescopeToken    string
	GradescopeEmail    string
	GradescopePassword string
	GoogleLinked       bool
	GoogleRefreshToken string
}

// HasGradescopeLogin reports whether an email and password are stored.
func (c *Credentials) HasGradescopeLogin() bool {
	return c.GradescopeEmail != "" && c.GradescopePassword != ""
}

// Credentials returns the user's stored credentials.
func (s *Store) Credentials(ctx context.Context, userID string) (*Credentials, error) {
	var c Credentials

	err := s.db.QueryRowContext(ctx, `SELECT gradescope_linked, gradescope_token, gradescope_email,
		gradescope_password, google_linked, google_refresh_token
		FROM credentials WHERE user_id = ?`, userID,
	).Scan(&c.GradescopeLinked, &c.GradescopeToken, &c.GradescopeEmail,
		&c.GradescopePassword, &c.GoogleLinked, &c.GoogleRefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	if err != nil {
		return nil, fmt.Errorf("store: loading credentials for %s: %w", userID, err)
	}

	return &c, nil
}

// SetGradescopeToken stores a validated session token and marks the account
// linked.
func (s *Store) SetGradescopeToken(ctx context.Context, userID, token string) error {
	return s.updateCredentials(ctx, userID,
		`gradescope_token = ?, gradescope_linked = 1`, token)
}

// SetGradescopeLogin stores the email and password used to renew the token.
func (s *Store) SetGradescopeLogin(ctx context.Context, userID, email, password string) error {
	return s.updateCredentials(ctx, userID,
		`gradescope_email = ?, gradescope_password = ?`, email, password)
}

// ClearGradescopeLogin deletes a stored email and password.
func (s *Store) ClearGradescopeLogin(ctx context.Context, userID string) error {
	return s.updateCredentials(ctx, userID, `gradescope_email = '', gradescope_password = ''`)
}

// SetGradescopeLinked records whether the Gradescope account is usable.
func (s *Store) SetGradescopeLinked(ctx context.Context, userID string, linked bool) error {
	return s.updateCredentials(ctx, userID, `gradescope_linked = ?`, linked)
}

// SetGoogleRefreshToken stores a refresh token and marks the account linked.
func (s *Store) SetGoogleRefreshToken(ctx context.Context, userID, token string) error {
	return s.updateCredentials(ctx, userID,
		`google_refresh_token = ?, google_linked = 1`, token)
}

// SetGoogleLinked records whether the Google account is usable.
func (s *Store) SetGoogleLinked(ctx context.Context, userID string, linked bool) error {
	return s.updateCredentials(ctx, userID, `google_linked = ?`, linked)
}

// updateCredentials applies assignments, a constant SET fragment, to the
// user's credentials row.
func (s *Store) updateCredentials(ctx context.Context, userID, assignments string, args ...any) error {
	args = append(args, s.nowFunc().UnixNano(), userID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET `+assignments+`, updated_at = ? WHERE user_id = ?`, args...) //nolint:gosec // constant fragment
	if err != nil {
		return fmt.Errorf("store: updating credentials for %s: %w", userID, err)
	}

	return requireRow(res, userID)
}
