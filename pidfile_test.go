package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireServeLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "gradecal.pid")

	lock, err := acquireServeLock(path)
	require.NoError(t, err)

	pid, err := readServePID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	lock.release()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "release removes the PID file")
}

func TestAcquireServeLock_SecondServeRefused(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gradecal.pid")

	lock, err := acquireServeLock(path)
	require.NoError(t, err)
	defer lock.release()

	second, err := acquireServeLock(path)
	require.Error(t, err)
	assert.Nil(t, second)
	assert.Contains(t, err.Error(), "already running (PID "+strconv.Itoa(os.Getpid())+")")
}

func TestAcquireServeLock_ReusesStaleFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gradecal.pid")
	require.NoError(t, os.WriteFile(path, []byte("99999999999\n"), 0o600))

	lock, err := acquireServeLock(path)
	require.NoError(t, err)
	defer lock.release()

	pid, err := readServePID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid, "old content fully replaced")
}

func TestAcquireServeLock_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := acquireServeLock("")
	assert.ErrorContains(t, err, "empty")
}

func TestReadServePID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{name: "valid", content: "12345\n", want: 12345},
		{name: "garbage", content: "not-a-pid\n", wantErr: true},
		{name: "zero", content: "0\n", wantErr: true},
		{name: "empty", content: "", wantErr: true},
	}

	for _, tt := range tests {
		path := filepath.Join(dir, tt.name+".pid")
		require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

		pid, err := readServePID(path)
		if tt.wantErr {
			assert.ErrorContains(t, err, "invalid PID", tt.name)
			continue
		}

		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, pid, tt.name)
	}

	_, err := readServePID(filepath.Join(dir, "missing.pid"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSignalServe_NotRunning(t *testing.T) {
	t.Parallel()

	err := signalServe(filepath.Join(t.TempDir(), "gradecal.pid"), syscall.SIGHUP)
	assert.ErrorContains(t, err, "is not running (no PID file")
}

func TestSignalServe_RemovesStaleFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gradecal.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o600))

	err := signalServe(path, syscall.SIGHUP)
	assert.ErrorContains(t, err, "removed stale")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSignalServe_DeliversSignal(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	path := filepath.Join(t.TempDir(), "gradecal.pid")

	lock, err := acquireServeLock(path)
	require.NoError(t, err)
	defer lock.release()

	require.NoError(t, signalServe(path, syscall.SIGHUP))

	select {
	case sig := <-sigCh:
		assert.Equal(t, syscall.SIGHUP, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("SIGHUP not delivered")
	}
}
