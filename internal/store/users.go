package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// AddUser creates a user with empty settings and no linked accounts. Adding
// an existing user is a no-op.
func (s *Store) AddUser(ctx context.Context, userID string) error {
	now := s.nowFunc().UnixNano()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmts := []struct {
			query string
			args  []any
		}{
			{`INSERT INTO users (user_id, created_at) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`, []any{userID, now}},
			{`INSERT INTO settings (user_id) VALUES (?) ON CONFLICT(user_id) DO NOTHING`, []any{userID}},
			{`INSERT INTO credentials (user_id, updated_at) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`, []any{userID, now}},
		}

		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
				return fmt.Errorf("store: adding user %s: %w", userID, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user added", slog.String("user_id", userID))

	return nil
}

// RemoveUser deletes a user and everything stored for them.
func (s *Store) RemoveUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("store: removing user %s: %w", userID, err)
	}

	if err := requireRow(res, userID); err != nil {
		return err
	}

	s.logger.Info("user removed", slog.String("user_id", userID))

	return nil
}

// Users returns every user ID in sorted order.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("store: listing users: %w", err)
	}
	defer rows.Close()

	var users []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scanning user: %w", err)
		}

		users = append(users, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating users: %w", err)
	}

	return users, nil
}

// HasUser reports whether the user exists.
func (s *Store) HasUser(ctx context.Context, userID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return false, fmt.Errorf("store: checking user %s: %w", userID, err)
	}

	return n > 0, nil
}
