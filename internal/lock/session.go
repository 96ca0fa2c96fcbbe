// Package lock keeps one clitask session per state directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// FileName is the lock file created inside the state directory.
const FileName = "clitask.pid"

// ErrSessionHeld is returned when another process owns the session.
var ErrSessionHeld = errors.New("another clitask session is running")

// Session is an exclusive flock(2) on a PID file. The lock lives as long as
// the file descriptor stays open.
type Session struct {
	path string
	f    *os.File
}

// PathFor returns the lock file path for stateDir.
func PathFor(stateDir string) string {
	return filepath.Join(stateDir, FileName)
}

// Acquire takes the session lock at path without blocking and writes the
// current PID into it.
func Acquire(path string) (*Session, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if pid, ok := HolderPID(path); ok {
				return nil, fmt.Errorf("%w (pid %d)", ErrSessionHeld, pid)
			}
			return nil, ErrSessionHeld
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	s := &Session{path: path, f: f}
	if err := s.writePID(); err != nil {
		_ = s.Release()
		return nil, err
	}
	return s, nil
}

func (s *Session) writePID() error {
	if err := s.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := s.f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(s.f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

func (s *Session) Path() string { return s.path }

// Release unlocks and closes the lock file. The file itself is left behind.
func (s *Session) Release() error {
	if s == nil || s.f == nil {
		return nil
	}
	_ = syscall.Flock(int(s.f.Fd()), syscall.LOCK_UN)
	err := s.f.Close()
	s.f = nil
	return err
}

// HolderPID reads the PID recorded in the lock file at path.
func HolderPID(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
