package main

import (
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestScheduler_SetSchedule(t *testing.T) {
	t.Parallel()

	s := newScheduler(func() {}, quietLogger())

	changed, err := s.setSchedule("0 */6 * * *")
	require.NoError(t, err)
	assert.True(t, changed)

	first := s.entry

	changed, err = s.setSchedule("0 */6 * * *")
	require.NoError(t, err)
	assert.False(t, changed, "same spec is a no-op")
	assert.Equal(t, first, s.entry)

	changed, err = s.setSchedule("30 7 * * 1-5")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEqual(t, first, s.entry)
	assert.Len(t, s.cron.Entries(), 1, "old entry removed")

	_, err = s.setSchedule("every tuesday")
	require.Error(t, err)
	assert.Equal(t, "30 7 * * 1-5", s.spec, "bad spec keeps the current schedule")
}

func TestScheduler_NextOnceStarted(t *testing.T) {
	t.Parallel()

	s := newScheduler(func() {}, quietLogger())

	_, err := s.setSchedule("* * * * *")
	require.NoError(t, err)

	s.start()
	defer s.stop()

	assert.Eventually(t, func() bool { return !s.next().IsZero() }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, s.next().After(time.Now()))
}

func TestScheduler_RunNowSkipsWhileRunning(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32

	release := make(chan struct{})

	s := newScheduler(func() {
		runs.Add(1)
		<-release
	}, quietLogger())

	s.runNow()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Still running: the second request is dropped.
	s.runNow()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	close(release)
}

func TestScheduler_RecoversPanickingJob(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})

	s := newScheduler(func() {
		defer close(done)
		panic(errors.New("job exploded"))
	}, quietLogger())

	s.runNow()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestScheduler_StopWaitsForRunNow(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})

	var finished atomic.Bool

	s := newScheduler(func() {
		close(started)
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	}, quietLogger())

	_, err := s.setSchedule("0 0 1 1 *")
	require.NoError(t, err)

	s.start()
	s.runNow()
	<-started

	s.stop()
	assert.True(t, finished.Load(), "stop returned while a startup run was in flight")
}
