package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"testing"
	"time"

	"github.com/tonimelisma/gradecal/internal/cache"
	"github.com/tonimelisma/gradecal/internal/gcal"
)

// testLogger returns a debug-level logger that writes to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func testCourses() cache.Courses {
	return cache.Courses{
		"C1": {Name: "Systems", Color: "5", Href: "/courses/C1"},
		"C2": {Name: "Algorithms", Color: "7", Href: "/courses/C2"},
	}
}

func testSettings() *cache.Settings {
	return &cache.Settings{CalendarID: "cal1", Courses: testCourses()}
}

// --- fake calendar ---

// fakeCalendar records every executed operation and answers creates with
// sequential IDs evt_1, evt_2, ... Callbacks run on the caller goroutine in
// submission order, like gcal.Service.
type fakeCalendar struct {
	mu       stdsync.Mutex
	valid    bool
	validErr error
	execErr  error
	failOps  map[string]error // keyed by event summary
	batches  [][]gcal.Entry
	nextID   int
	validate int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{valid: true, failOps: map[string]error{}}
}

func (f *fakeCalendar) ValidateCalendar(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.validate++

	return f.valid, f.validErr
}

func (f *fakeCalendar) ExecuteBatch(_ context.Context, b *gcal.Batch) error {
	f.mu.Lock()
	entries := append([]gcal.Entry(nil), b.Entries()...)
	f.batches = append(f.batches, entries)
	f.mu.Unlock()

	for i, e := range entries {
		if err, ok := f.failOps[e.Op.Event.Summary]; ok {
			b.Deliver(i, nil, err)
			continue
		}

		switch e.Op.Kind {
		case gcal.OpCreate:
			f.nextID++
			b.Deliver(i, &gcal.Response{ID: fmt.Sprintf("evt_%d", f.nextID)}, nil)
		default:
			b.Deliver(i, &gcal.Response{ID: e.Op.EventID}, nil)
		}
	}

	return f.execErr
}

// lastOps returns the operations of the most recent batch, or nil if no
// batch has been executed.
func (f *fakeCalendar) lastOps() []gcal.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.batches) == 0 {
		return nil
	}

	last := f.batches[len(f.batches)-1]
	ops := make([]gcal.Operation, len(last))

	for i, e := range last {
		ops[i] = e.Op
	}

	return ops
}

// --- fake store ---

type fakeStore struct {
	mu        stdsync.Mutex
	users     []string
	usersErr  error
	settings  map[string]*cache.Settings
	caches    map[string]cache.Cache
	writes    int
	cleared   []string
	readCalls int
	writeErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: map[string]*cache.Settings{},
		caches:   map[string]cache.Cache{},
	}
}

func (s *fakeStore) Users(_ context.Context) ([]string, error) {
	return s.users, s.usersErr
}

func (s *fakeStore) Settings(_ context.Context, uid string) (*cache.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settings[uid]
	if !ok {
		return nil, nil
	}

	cp := *st

	return &cp, nil
}

func (s *fakeStore) SetCalendarID(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[uid].CalendarID = id

	return nil
}

func (s *fakeStore) ClearCalendarID(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[uid].CalendarID = ""
	s.cleared = append(s.cleared, uid)

	return nil
}

func (s *fakeStore) Courses(_ context.Context, uid string) (cache.Courses, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settings[uid]
	if !ok {
		return nil, nil
	}

	return st.Courses, nil
}

func (s *fakeStore) SetCourses(_ context.Context, uid string, courses cache.Courses) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settings[uid]
	if !ok {
		st = &cache.Settings{}
		s.settings[uid] = st
	}

	st.Courses = courses

	return nil
}

func (s *fakeStore) ReadCache(_ context.Context, uid string) (cache.Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readCalls++

	return s.caches[uid].Clone(), nil
}

func (s *fakeStore) WriteCache(_ context.Context, uid string, c cache.Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	s.writes++
	s.caches[uid] = c.Clone()

	return nil
}

// --- fake source and connector ---

type fakeSource struct {
	snapshot cache.Snapshot
	courses  cache.Courses
	err      error
}

func (f *fakeSource) Fetch(_ context.Context, _ cache.Courses) (cache.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make(cache.Snapshot, len(f.snapshot))
	for k, v := range f.snapshot {
		out[k] = v
	}

	return out, nil
}

func (f *fakeSource) ListCourses(_ context.Context) (cache.Courses, error) {
	return f.courses, f.err
}

type fakeConnector struct {
	source    *fakeSource
	calendar  *fakeCalendar
	sourceErr error
	calErr    error
}

func (c *fakeConnector) Source(_ context.Context, _ string) (Source, error) {
	if c.sourceErr != nil {
		return nil, c.sourceErr
	}

	return c.source, nil
}

func (c *fakeConnector) Calendar(_ context.Context, _ string) (CalendarService, error) {
	if c.calErr != nil {
		return nil, c.calErr
	}

	return c.calendar, nil
}
