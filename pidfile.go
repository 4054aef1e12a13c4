package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// serveLock is the PID file of a running `gradecal serve`. The exclusive
// flock on it keeps a second serve off the same state directory.
type serveLock struct {
	path string
	f    *os.File
}

// acquireServeLock creates the PID file at path, locks it, and records the
// current PID. The state directory is created owner-only if missing.
func acquireServeLock(path string) (*serveLock, error) {
	if path == "" {
		return nil, errors.New("PID file path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		if pid, perr := readServePID(path); perr == nil {
			return nil, fmt.Errorf("another gradecal serve is already running (PID %d)", pid)
		}

		return nil, fmt.Errorf("another gradecal serve is already running (could not lock %s)", path)
	}

	l := &serveLock{path: path, f: f}

	if err := l.writePID(); err != nil {
		l.release()
		return nil, err
	}

	return l, nil
}

func (l *serveLock) writePID() error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := l.f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}

	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("syncing PID file: %w", err)
	}

	return nil
}

// release removes the PID file and drops the lock. The file is removed
// first so no reader sees an unlocked file with a live-looking PID.
func (l *serveLock) release() {
	os.Remove(l.path)
	l.f.Close()
}

// readServePID returns the PID recorded at path.
func readServePID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in %s: %q", path, strings.TrimSpace(string(data)))
	}

	return pid, nil
}

// signalServe delivers sig to the serve process recorded at pidPath. A PID
// file whose process is gone is removed.
func signalServe(pidPath string, sig syscall.Signal) error {
	pid, err := readServePID(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("gradecal serve is not running (no PID file at %s)", pidPath)
	}

	if err != nil {
		return err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidPath)
		return fmt.Errorf("gradecal serve (PID %d) is not running; removed stale %s", pid, pidPath)
	}

	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("signaling gradecal serve (PID %d): %w", pid, err)
	}

	return nil
}
