// Package lock guards a build directory against concurrent pipeline runs.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// LockFileName is the lock file created inside the build directory.
const LockFileName = ".berth.lock"

// BuildLock is a single-runner lock implemented via a PID file + flock(2).
// Keep the lock alive by keeping the file descriptor open.
type BuildLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock for buildDir, writes the
// current PID into the lock file, and returns a handle that must be released.
func Acquire(buildDir string) (*BuildLock, error) {
	if buildDir == "" {
		return nil, fmt.Errorf("build directory is empty")
	}
	lockPath := filepath.Join(buildDir, LockFileName)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("another build is running in %s: %w", buildDir, err)
	}

	if err := f.Truncate(0); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &BuildLock{path: lockPath, f: f}, nil
}

func (l *BuildLock) Path() string { return l.path }

func (l *BuildLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
