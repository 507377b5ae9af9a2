package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// ErrHeld is returned when another process already holds the lock
var ErrHeld = fmt.Errorf("lock already held by another process")

// Lock is an advisory flock(2) based single-instance guard. Overlapping cron
// runs are expected to see ErrHeld and skip rather than double-run.
type Lock struct {
	path string
	file *os.File
}

// New builds a lock for <dir>/<name>.lock without acquiring it
func New(dir, name string) *Lock {
	return &Lock{path: filepath.Join(dir, name+".lock")}
}

func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock non-blocking, recording our pid in the lockfile
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %v", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("opening lockfile %s: %v", l.path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK {
			return ErrHeld
		}
		return fmt.Errorf("flock on %s: %v", l.path, err)
	}

	// pid is informational only, flock is the actual guard
	f.Truncate(0)
	f.Seek(0, 0)
	f.WriteString(strconv.Itoa(os.Getpid()) + "\n")

	l.file = f
	return nil
}

// Release drops the lock, safe to call when never acquired
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("unlocking %s: %v", l.path, err)
	}
	return nil
}
