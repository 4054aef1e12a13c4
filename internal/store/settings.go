package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/gradecal/internal/cache"
)

// Settings returns the user's settings with their course list, or nil if
// the user does not exist. Courses is nil when the user has no courses, so
// such settings are not Valid.
func (s *Store) Settings(ctx context.Context, userID string) (*cache.Settings, error) {
	var st cache.Settings

	err := s.db.QueryRowContext(ctx,
		`SELECT calendar_id, completed_color FROM settings WHERE user_id = ?`, userID,
	).Scan(&st.CalendarID, &st.CompletedColor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("store: loading settings for %s: %w", userID, err)
	}

	courses, err := s.Courses(ctx, userID)
	if err != nil {
		return nil, err
	}

	st.Courses = courses

	return &st, nil
}

// SetCalendarID stores the selected calendar.
func (s *Store) SetCalendarID(ctx context.Context, userID, calendarID string) error {
	return s.updateSetting(ctx, userID, "calendar_id", calendarID)
}

// ClearCalendarID deletes the calendar selection.
func (s *Store) ClearCalendarID(ctx context.Context, userID string) error {
	return s.updateSetting(ctx, userID, "calendar_id", "")
}

// SetCompletedColor stores the color for completed assignments; "" turns
// recoloring off.
func (s *Store) SetCompletedColor(ctx context.Context, userID, color string) error {
	return s.updateSetting(ctx, userID, "completed_color", color)
}

// updateSetting writes one settings column. column is never user input.
func (s *Store) updateSetting(ctx context.Context, userID, column, value string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE settings SET `+column+` = ? WHERE user_id = ?`, value, userID) //nolint:gosec // column is a constant
	if err != nil {
		return fmt.Errorf("store: updating %s for %s: %w", column, userID, err)
	}

	if err := requireRow(res, userID); err != nil {
		return err
	}

	s.logger.Debug("setting updated",
		slog.String("user_id", userID),
		slog.String("setting", column),
	)

	return nil
}

// Courses returns the user's course list, or nil if it is empty.
func (s *Store) Courses(ctx context.Context, userID string) (cache.Courses, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT course_id, name, color, href FROM courses WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: loading courses for %s: %w", userID, err)
	}
	defer rows.Close()

	var courses cache.Courses

	for rows.Next() {
		var (
			id string
			c  cache.Course
		)

		if err := rows.Scan(&id, &c.Name, &c.Color, &c.Href); err != nil {
			return nil, fmt.Errorf("store: scanning course: %w", err)
		}

		if courses == nil {
			courses = make(cache.Courses)
		}

		courses[id] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating courses: %w", err)
	}

	return courses, nil
}

// SetCourses replaces the user's course list.
func (s *Store) SetCourses(ctx context.Context, userID string, courses cache.Courses) error {
	ok, err := s.HasUser(ctx, userID)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("store: clearing courses for %s: %w", userID, err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO courses (user_id, course_id, name, color, href) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("store: preparing course insert: %w", err)
		}
		defer stmt.Close()

		for id, c := range courses {
			if _, err := stmt.ExecContext(ctx, userID, id, c.Name, c.Color, c.Href); err != nil {
				return fmt.Errorf("store: inserting course %s: %w", id, err)
			}
		}

		return nil
	})
}

// SetCourseColor changes one course's color.
func (s *Store) SetCourseColor(ctx context.Context, userID, courseID, color string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE courses SET color = ? WHERE user_id = ? AND course_id = ?`, color, userID, courseID)
	if err != nil {
		return fmt.Errorf("store: setting color of course %s: %w", courseID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: reading affected rows: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("store: user %s has no course %s", userID, courseID)
	}

	return nil
}

// RemoveCourse stops tracking a course until the next course refresh.
func (s *Store) RemoveCourse(ctx context.Context, userID, courseID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM courses WHERE user_id = ? AND course_id = ?`, userID, courseID); err != nil {
		return fmt.Errorf("store: removing course %s: %w", courseID, err)
	}

	return nil
}
