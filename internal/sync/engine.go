package sync

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/tonimelisma/gradecal/internal/cache"
	"github.com/tonimelisma/gradecal/internal/gcal"
)

// DefaultSourceBaseURL is the site course hrefs are relative to.
const DefaultSourceBaseURL = "https://www.gradescope.com"

// EngineConfig holds the options for NewEngine.
type EngineConfig struct {
	Calendar      CalendarService
	SourceBaseURL string // for event descriptions; "" uses DefaultSourceBaseURL
	Logger        *slog.Logger
}

// ApplyReport counts what one Apply call decided and what the calendar
// reported back.
type ApplyReport struct {
	Creates  int           `json:"creates"`
	Patches  int           `json:"patches"`
	Evicted  int           `json:"evicted"`
	Skipped  int           `json:"skipped"` // mutations skipped for incomplete course metadata
	Linked   int           `json:"linked"`  // creates confirmed with an event ID
	Failed   int           `json:"failed"`  // operations the calendar rejected
	Duration time.Duration `json:"duration_ns"`
}

// Operations returns the number of mutations submitted.
func (r *ApplyReport) Operations() int {
	return r.Creates + r.Patches
}

// Engine derives calendar mutations from a reconciled cache and applies
// their results back onto it.
type Engine struct {
	calendar CalendarService
	baseURL  string
	logger   *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg *EngineConfig) *Engine {
	baseURL := cfg.SourceBaseURL
	if baseURL == "" {
		baseURL = DefaultSourceBaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		calendar: cfg.Calendar,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// Apply walks live, evicts completed entries, and submits one batch holding
// a create for every unlinked open entry and a patch for every linked entry
// that is stale, or completed while a completed color is configured. It
// returns live after every callback has run; live is mutated in place.
//
// Decisions are taken from a copy of live made on entry, so evicting an
// entry never hides it from the patch decision. Stale is cleared as soon as
// the patch is queued. A create callback writes the new event ID through
// the entry's key, so it has no effect if the entry is gone.
//
// The returned error is non-nil only when ctx ended during the batch; live
// is still returned and reflects every operation that completed.
func (e *Engine) Apply(ctx context.Context, live cache.Cache, settings *cache.Settings) (cache.Cache, *ApplyReport, error) {
	start := time.Now()
	report := &ApplyReport{}
	batch := gcal.NewBatch(settings.CalendarID)
	snapshot := live.Clone()

	for _, key := range slices.Sorted(maps.Keys(snapshot)) {
		a := snapshot[key]

		if a.Completed {
			delete(live, key)
			report.Evicted++
		}

		switch {
		case a.Linked():
			if !(settings.CompletedColor != "" && a.Completed) && !a.Stale {
				continue
			}

			course, ok := settings.Courses[a.CourseID]
			if !ok || !course.Complete() {
				e.skip(key, a, report)
				continue
			}

			batch.Add(gcal.Operation{
				Kind:    gcal.OpPatch,
				EventID: a.EventID,
				Event:   e.patchEvent(a, course, settings.CompletedColor),
			}, e.patchCallback(key, report))
			report.Patches++

			if entry, present := live[key]; present {
				entry.Stale = false
				live[key] = entry
			}

		case !a.Completed:
			course, ok := settings.Courses[a.CourseID]
			if !ok || !course.Complete() {
				e.skip(key, a, report)
				continue
			}

			batch.Add(gcal.Operation{
				Kind:  gcal.OpCreate,
				Event: e.createEvent(a, course, settings.CompletedColor),
			}, e.linkCallback(live, key, report))
			report.Creates++
		}
	}

	e.logger.Debug("calendar mutations planned",
		slog.Int("entries", len(snapshot)),
		slog.Int("creates", report.Creates),
		slog.Int("patches", report.Patches),
		slog.Int("evicted", report.Evicted),
		slog.Int("skipped", report.Skipped),
	)

	var err error
	if batch.Len() > 0 {
		if execErr := e.calendar.ExecuteBatch(ctx, batch); execErr != nil {
			err = fmt.Errorf("sync: executing calendar batch: %w", execErr)
		}
	}

	report.Duration = time.Since(start)

	return live, report, err
}

func (e *Engine) skip(key cache.Key, a cache.Assignment, report *ApplyReport) {
	report.Skipped++

	e.logger.Debug("skipping mutation for incomplete course",
		slog.String("key", key.String()),
		slog.String("course_id", a.CourseID),
	)
}

// linkCallback records the event ID returned for a create.
func (e *Engine) linkCallback(live cache.Cache, key cache.Key, report *ApplyReport) gcal.Callback {
	return func(requestID string, resp *gcal.Response, err error) {
		if err != nil {
			report.Failed++
			e.logger.Warn("calendar create failed",
				slog.String("key", key.String()),
				slog.String("request_id", requestID),
				slog.String("error", err.Error()),
			)

			return
		}

		entry, ok := live[key]
		if !ok || resp == nil {
			return
		}

		entry.EventID = resp.ID
		live[key] = entry
		report.Linked++
	}
}

// patchCallback observes the result of a patch. Stale was already cleared
// when the patch was queued.
func (e *Engine) patchCallback(key cache.Key, report *ApplyReport) gcal.Callback {
	return func(requestID string, _ *gcal.Response, err error) {
		if err == nil {
			return
		}

		// TODO: restore Stale on the entry so the next pass retries the
		// patch, once rejected patches (deleted events, 403s) are told apart
		// from transient failures.
		report.Failed++
		e.logger.Warn("calendar patch failed",
			slog.String("key", key.String()),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
	}
}

// createEvent renders a new event for a.
func (e *Engine) createEvent(a cache.Assignment, course cache.Course, completedColor string) gcal.Event {
	ev := e.patchEvent(a, course, completedColor)
	ev.Description = fmt.Sprintf(`Assignment for <a href="%s">%s</a> on Gradescope`,
		CourseURL(e.baseURL, course.Href), course.Name)

	return ev
}

// patchEvent renders the fields a patch rewrites. The description is left
// alone.
func (e *Engine) patchEvent(a cache.Assignment, course cache.Course, completedColor string) gcal.Event {
	color := course.Color
	if completedColor != "" && a.Completed {
		color = completedColor
	}

	return gcal.Event{
		Summary: EventSummary(a),
		Start:   a.Due.At,
		ColorID: color,
	}
}

// EventSummary is the title of an assignment's calendar event.
func EventSummary(a cache.Assignment) string {
	return fmt.Sprintf("%s [%s]", a.Name, a.CourseID)
}

// CourseURL resolves a course href against baseURL.
func CourseURL(baseURL, href string) string {
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}

	return strings.TrimRight(baseURL, "/") + href
}
