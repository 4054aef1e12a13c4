package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/gradecal/internal/cache"
)

const sqlLoadAssignments = `SELECT key, name, due_at, late_due_at, completed, course_id, event_id, stale
	FROM assignments WHERE user_id = ?`

const sqlInsertAssignment = `INSERT INTO assignments
	(user_id, key, name, due_at, late_due_at, completed, course_id, event_id, stale)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReadCache returns the user's assignment cache. A user without entries
// gets an empty, non-nil cache.
func (s *Store) ReadCache(ctx context.Context, userID string) (cache.Cache, error) {
	rows, err := s.db.QueryContext(ctx, sqlLoadAssignments, userID)
	if err != nil {
		return nil, fmt.Errorf("store: loading cache for %s: %w", userID, err)
	}
	defer rows.Close()

	c := make(cache.Cache)

	for rows.Next() {
		var (
			key  string
			a    cache.Assignment
			due  int64
			late sql.NullInt64
		)

		if err := rows.Scan(&key, &a.Name, &due, &late, &a.Completed, &a.CourseID, &a.EventID, &a.Stale); err != nil {
			return nil, fmt.Errorf("store: scanning assignment: %w", err)
		}

		a.Due = cache.NewDueDate(fromNanos(due))
		if late.Valid {
			a.Due = a.Due.WithLate(fromNanos(late.Int64))
		}

		c[cache.Key(key)] = a
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating assignments: %w", err)
	}

	s.logger.Debug("cache loaded", slog.String("user_id", userID), slog.Int("entries", len(c)))

	return c, nil
}

// WriteCache replaces the user's whole cache in one transaction. There is
// no version check: the last writer wins.
func (s *Store) WriteCache(ctx context.Context, userID string, c cache.Cache) error {
	ok, err := s.HasUser(ctx, userID)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("store: clearing cache for %s: %w", userID, err)
		}

		stmt, err := tx.PrepareContext(ctx, sqlInsertAssignment)
		if err != nil {
			return fmt.Errorf("store: preparing assignment insert: %w", err)
		}
		defer stmt.Close()

		for key, a := range c {
			var late sql.NullInt64
			if a.Due.Late != nil {
				late = sql.NullInt64{Int64: a.Due.Late.UnixNano(), Valid: true}
			}

			if _, err := stmt.ExecContext(ctx, userID, string(key), a.Name, a.Due.At.UnixNano(), late,
				a.Completed, a.CourseID, a.EventID, a.Stale); err != nil {
				return fmt.Errorf("store: inserting assignment %s: %w", key, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("cache written", slog.String("user_id", userID), slog.Int("entries", len(c)))

	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
