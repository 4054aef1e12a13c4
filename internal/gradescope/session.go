package gradescope

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/gradecal/internal/cache"
)

// Session is a Client bound to one user's session token.
type Session struct {
	client *Client
	token  string
}

// Session returns a Session using token.
func (c *Client) Session(token string) *Session {
	return &Session{client: c, token: token}
}

// Fetch downloads the assignment table of every course concurrently and
// returns the merged snapshot. Any failed course page fails the whole
// fetch; unparseable rows are dropped.
func (s *Session) Fetch(ctx context.Context, courses cache.Courses) (cache.Snapshot, error) {
	var (
		mu       stdsync.Mutex
		snapshot = make(cache.Snapshot)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.client.workers)

	for id, course := range courses {
		g.Go(func() error {
			body, err := s.client.getPage(gctx, s.token, course.Href)
			if err != nil {
				return fmt.Errorf("gradescope: fetching course %s: %w", id, err)
			}

			rows, skipped := parseAssignments(bytes.NewReader(body), id)

			s.client.logger.Debug("course assignments parsed",
				slog.String("course_id", id),
				slog.Int("assignments", len(rows)),
				slog.Int("skipped", skipped),
			)

			mu.Lock()
			for k, v := range rows {
				snapshot[k] = v
			}
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// ListCourses returns the courses on the account page keyed by course ID.
// Colors are left empty.
func (s *Session) ListCourses(ctx context.Context) (cache.Courses, error) {
	body, err := s.client.getPage(ctx, s.token, "/")
	if err != nil {
		return nil, fmt.Errorf("gradescope: fetching course list: %w", err)
	}

	courses := parseCourses(bytes.NewReader(body))

	s.client.logger.Debug("course list parsed", slog.Int("courses", len(courses)))

	return courses, nil
}
