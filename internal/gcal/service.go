package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Defaults used when ServiceOptions leaves a field zero.
const (
	defaultWorkers           = 4
	defaultRequestsPerSecond = 5.0
	burstMultiplier          = 2
)

// Access roles that allow gradecal to write events.
const (
	roleOwner  = "owner"
	roleWriter = "writer"
)

// ServiceOptions configures NewService.
type ServiceOptions struct {
	Workers           int     // concurrent requests per batch
	RequestsPerSecond float64 // shared across all batches executed by the service
	Logger            *slog.Logger

	// ClientOptions are appended after the token source. Tests use
	// option.WithEndpoint and option.WithHTTPClient to target httptest.
	ClientOptions []option.ClientOption
}

// CalendarInfo is a calendar the user can select as a sync target.
type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	AccessRole string `json:"access_role"`
	Primary    bool   `json:"primary,omitempty"`
}

// Service executes calendar operations for one Google account.
type Service struct {
	api     *calendar.Service
	limiter *rate.Limiter
	workers int
	logger  *slog.Logger
}

// NewService creates a Service authenticated by ts. ts may be nil when
// opts.ClientOptions supplies its own HTTP client.
func NewService(ctx context.Context, ts oauth2.TokenSource, opts ServiceOptions) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	var clientOpts []option.ClientOption
	if ts != nil {
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}

	clientOpts = append(clientOpts, opts.ClientOptions...)

	api, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: creating calendar service: %w", err)
	}

	return &Service{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps*burstMultiplier)+1),
		workers: workers,
		logger:  logger,
	}, nil
}

// ValidateCalendar reports whether calendarID names a calendar that exists,
// is not deleted, and that the user can write to. A 404 is a normal false;
// any other API failure is returned as an error.
func (s *Service) ValidateCalendar(ctx context.Context, calendarID string) (bool, error) {
	if calendarID == "" {
		return false, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("gcal: validating calendar: %w", err)
	}

	entry, err := s.api.CalendarList.Get(calendarID).Context(ctx).Do()
	if err != nil {
		classified := classifyError(err)
		if errors.Is(classified, ErrNotFound) {
			s.logger.Info("calendar not found", slog.String("calendar_id", calendarID))
			return false, nil
		}

		return false, fmt.Errorf("gcal: validating calendar %s: %w", calendarID, classified)
	}

	writable := entry.AccessRole == roleOwner || entry.AccessRole == roleWriter

	s.logger.Debug("calendar checked",
		slog.String("calendar_id", calendarID),
		slog.String("access_role", entry.AccessRole),
		slog.Bool("deleted", entry.Deleted),
	)

	return !entry.Deleted && writable, nil
}

// ListCalendars returns every calendar the user can write to.
func (s *Service) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var out []CalendarInfo

	call := s.api.CalendarList.List().MinAccessRole(roleWriter)

	err := call.Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			if item.Deleted {
				continue
			}

			out = append(out, CalendarInfo{
				ID:         item.Id,
				Summary:    item.Summary,
				AccessRole: item.AccessRole,
				Primary:    item.Primary,
			})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gcal: listing calendars: %w", classifyError(err))
	}

	return out, nil
}

// opResult is the outcome of one batch entry.
type opResult struct {
	resp *Response
	err  error
}

// ExecuteBatch runs every queued operation and then invokes the callbacks
// on the calling goroutine, in submission order. Operations run
// concurrently up to the worker limit; one failing operation does not stop
// the others, and its error is handed to its callback only. ExecuteBatch
// itself fails only when ctx ends, after delivering every callback, so
// operations that did complete are still observed.
func (s *Service) ExecuteBatch(ctx context.Context, b *Batch) error {
	if b.Len() == 0 {
		return nil
	}

	start := time.Now()
	entries := b.Entries()
	results := make([]opResult, len(entries))

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i := range entries {
		op := entries[i].Op
		g.Go(func() error {
			resp, err := s.execute(ctx, b.CalendarID(), op)
			results[i] = opResult{resp: resp, err: err}

			return nil
		})
	}

	// Workers keep their outcome in results and never fail the group.
	g.Wait()

	failed := 0

	for i, r := range results {
		if r.err != nil {
			failed++
		}

		b.Deliver(i, r.resp, r.err)
	}

	s.logger.Info("calendar batch executed",
		slog.String("calendar_id", b.CalendarID()),
		slog.Int("operations", len(entries)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("gcal: batch interrupted: %w", err)
	}

	return nil
}

// execute performs a single operation, waiting on the shared rate limiter.
func (s *Service) execute(ctx context.Context, calendarID string, op Operation) (*Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gcal: %s: %w", op.Kind, err)
	}

	body := toAPIEvent(op.Event)

	var (
		ev  *calendar.Event
		err error
	)

	switch op.Kind {
	case OpCreate:
		ev, err = s.api.Events.Insert(calendarID, body).Context(ctx).Do()
	case OpPatch:
		if op.EventID == "" {
			return nil, fmt.Errorf("gcal: patch without event ID")
		}

		ev, err = s.api.Events.Patch(calendarID, op.EventID, body).Context(ctx).Do()
	default:
		return nil, fmt.Errorf("gcal: unknown operation kind %d", op.Kind)
	}

	if err != nil {
		s.logger.Debug("calendar operation failed",
			slog.String("op", op.Kind.String()),
			slog.String("event_id", op.EventID),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("gcal: %s event: %w", op.Kind, classifyError(err))
	}

	return &Response{ID: ev.Id}, nil
}

// toAPIEvent renders an Event as a calendar/v3 body. Start and end are the
// same instant.
func toAPIEvent(e Event) *calendar.Event {
	out := &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		ColorId:     e.ColorID,
	}

	if !e.Start.IsZero() {
		when := &calendar.EventDateTime{DateTime: e.Start.Format(time.RFC3339)}
		out.Start = when
		out.End = when
	}

	return out
}
