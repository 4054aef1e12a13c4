package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/gradecal/internal/cache"
)

// PassConfig holds the options for NewRunner.
type PassConfig struct {
	Store         Store
	Connector     Connector
	SourceBaseURL string
	FetchTimeout  time.Duration // 0 = no deadline beyond ctx
	BatchTimeout  time.Duration // 0 = no deadline beyond ctx
	Logger        *slog.Logger
}

// PassReport summarizes one user's pass.
type PassReport struct {
	PassID      string        `json:"pass_id"`
	UserID      string        `json:"user_id"`
	Trigger     string        `json:"trigger"`
	Fetched     int           `json:"fetched"`
	CacheBefore int           `json:"cache_before"`
	CacheAfter  int           `json:"cache_after"`
	Apply       *ApplyReport  `json:"apply,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// Runner executes reconciliation passes. It holds no per-user state and is
// safe for concurrent use; two passes for the same user race on the final
// cache write and the last one wins.
type Runner struct {
	cfg    *PassConfig
	logger *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg *PassConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{cfg: cfg, logger: logger}
}

// Run performs one full pass for userID: settings, Gradescope credentials,
// Google credentials and the calendar selection are checked in that order,
// then the snapshot is fetched, reconciled against the stored cache,
// applied to the calendar, and the result written back in one overwrite.
//
// A failed check or fetch returns before the stored cache is read, leaving
// it untouched. Once the batch has run, the cache is persisted even if the
// batch was cut short, since the calendar already holds whatever completed.
func (r *Runner) Run(ctx context.Context, userID string, trigger Trigger) (*PassReport, error) {
	start := time.Now()
	report := &PassReport{
		PassID:  uuid.NewString(),
		UserID:  userID,
		Trigger: trigger.String(),
	}

	logger := r.logger.With(
		slog.String("user_id", userID),
		slog.String("pass_id", report.PassID),
		slog.String("trigger", trigger.String()),
	)

	logger.Info("pass starting")

	settings, err := r.cfg.Store.Settings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sync: loading settings for %s: %w", userID, err)
	}

	if !settings.Valid() {
		return nil, ErrInvalidSettings
	}

	source, err := r.cfg.Connector.Source(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendar, err := r.cfg.Connector.Calendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.checkCalendar(ctx, userID, settings, calendar, trigger, logger); err != nil {
		return nil, err
	}

	snapshot, err := r.fetch(ctx, source, settings.Courses)
	if err != nil {
		logger.Warn("assignment fetch failed", slog.String("error", err.Error()))
		return nil, err
	}

	prior, err := r.cfg.Store.ReadCache(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sync: reading cache for %s: %w", userID, err)
	}

	report.Fetched = len(snapshot)
	report.CacheBefore = len(prior)

	updated := Reconcile(snapshot, prior, settings.Courses)

	engine := NewEngine(&EngineConfig{
		Calendar:      calendar,
		SourceBaseURL: r.cfg.SourceBaseURL,
		Logger:        logger,
	})

	batchCtx, cancel := withOptionalTimeout(ctx, r.cfg.BatchTimeout)
	final, applyReport, applyErr := engine.Apply(batchCtx, updated, settings)
	cancel()

	report.Apply = applyReport
	report.CacheAfter = len(final)

	// Persist with the parent context: a batch deadline must not also drop
	// the event IDs the calendar already returned.
	if err := r.cfg.Store.WriteCache(context.WithoutCancel(ctx), userID, final); err != nil {
		return nil, fmt.Errorf("sync: writing cache for %s: %w", userID, err)
	}

	report.Duration = time.Since(start)

	if applyErr != nil {
		logger.Warn("pass finished with interrupted batch", slog.String("error", applyErr.Error()))
		return report, applyErr
	}

	logger.Info("pass complete",
		slog.Int("fetched", report.Fetched),
		slog.Int("creates", applyReport.Creates),
		slog.Int("patches", applyReport.Patches),
		slog.Int("evicted", applyReport.Evicted),
		slog.Int("failed", applyReport.Failed),
		slog.Duration("duration", report.Duration),
	)

	return report, nil
}

// checkCalendar validates the selected calendar and records an invalid
// selection according to the trigger.
func (r *Runner) checkCalendar(
	ctx context.Context, userID string, settings *cache.Settings,
	calendar CalendarService, trigger Trigger, logger *slog.Logger,
) error {
	ok := false

	if !settings.CalendarInvalidated() {
		var err error

		ok, err = calendar.ValidateCalendar(ctx, settings.CalendarID)
		if err != nil {
			return fmt.Errorf("sync: validating calendar for %s: %w", userID, err)
		}
	}

	if ok {
		return nil
	}

	logger.Info("calendar selection invalid", slog.String("calendar_id", settings.CalendarID))

	var err error

	switch trigger {
	case TriggerManual:
		err = r.cfg.Store.ClearCalendarID(ctx, userID)
	default:
		if !settings.CalendarInvalidated() {
			err = r.cfg.Store.SetCalendarID(ctx, userID, cache.InvalidCalendarID)
		}
	}

	if err != nil {
		return errors.Join(ErrInvalidCalendar, fmt.Errorf("sync: recording invalid calendar: %w", err))
	}

	return ErrInvalidCalendar
}

func (r *Runner) fetch(ctx context.Context, source AssignmentSource, courses cache.Courses) (cache.Snapshot, error) {
	fetchCtx, cancel := withOptionalTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	snapshot, err := source.Fetch(fetchCtx, courses)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceFetch, err)
	}

	return snapshot, nil
}

// RefreshCourses replaces the user's course list with the courses currently
// on their account, keeping the colors of courses already known.
func (r *Runner) RefreshCourses(ctx context.Context, userID string) (cache.Courses, error) {
	source, err := r.cfg.Connector.Source(ctx, userID)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := withOptionalTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	fetched, err := source.ListCourses(fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceFetch, err)
	}

	existing, err := r.cfg.Store.Courses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sync: loading courses for %s: %w", userID, err)
	}

	merged := MergeCourses(fetched, existing)

	if err := r.cfg.Store.SetCourses(ctx, userID, merged); err != nil {
		return nil, fmt.Errorf("sync: saving courses for %s: %w", userID, err)
	}

	r.logger.Info("course list refreshed",
		slog.String("user_id", userID),
		slog.Int("courses", len(merged)),
	)

	return merged, nil
}

// MergeCourses returns fetched with each course's color taken from existing,
// or cache.DefaultCourseColor for courses not seen before. Courses only in
// existing are dropped.
func MergeCourses(fetched, existing cache.Courses) cache.Courses {
	out := make(cache.Courses, len(fetched))

	for id, c := range fetched {
		c.Color = cache.DefaultCourseColor

		if prev, ok := existing[id]; ok && prev.Color != "" {
			c.Color = prev.Color
		}

		out[id] = c
	}

	return out
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
