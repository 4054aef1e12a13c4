package main

import (
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}

// scheduler runs one job on a cron schedule that can be replaced while
// running. A run that is still going when the next one is due causes the
// next one to be skipped.
type scheduler struct {
	cron *cron.Cron
	job  cron.Job
	now  stdsync.WaitGroup // runs started by runNow, which cron does not track

	mu    stdsync.Mutex
	spec  string
	entry cron.EntryID
}

func newScheduler(fn func(), logger *slog.Logger) *scheduler {
	cl := cronLogger{logger: logger}

	return &scheduler{
		cron: cron.New(cron.WithLogger(cl)),
		// Wrapped once so the skip guard survives a schedule change.
		job: cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(fn)),
	}
}

// setSchedule installs spec, a standard five-field cron expression. It
// reports whether the schedule changed.
func (s *scheduler) setSchedule(spec string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec {
		return false, nil
	}

	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return false, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	id := s.cron.Schedule(sched, s.job)

	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}

	s.spec = spec
	s.entry = id

	return true, nil
}

// next returns the next time the job is due, or the zero time when the
// scheduler is not running.
func (s *scheduler) next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cron.Entry(s.entry).Next
}

// runNow runs the job once in the background, subject to the same skip
// guard as scheduled runs.
func (s *scheduler) runNow() {
	s.now.Add(1)

	go func() {
		defer s.now.Done()
		s.job.Run()
	}()
}

func (s *scheduler) start() {
	s.cron.Start()
}

// stop halts the schedule and waits for every running job to return,
// scheduled or started by runNow.
func (s *scheduler) stop() {
	<-s.cron.Stop().Done()
	s.now.Wait()
}
