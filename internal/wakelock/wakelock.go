// Package wakelock provides timed, self-expiring wake locks.
//
// A Lock is a lease: Acquire arms it for a duration and returns immediately,
// the lease lapses on its own when the timer fires, and Release ends it
// early. Acquiring while held extends the lease to the new deadline.
package wakelock

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// Kernel wake lock control files (CONFIG_PM_WAKELOCKS).
const (
	DefaultLockPath   = "/sys/power/wake_lock"
	DefaultUnlockPath = "/sys/power/wake_unlock"
)

// Backend holds and drops the system-level lock.
type Backend interface {
	Hold(name string, timeout time.Duration) error
	Drop(name string) error
}

// SysfsBackend drives the kernel wake lock interface. Hold passes the
// timeout to the kernel so the lock expires even if this process dies.
type SysfsBackend struct {
	LockPath   string
	UnlockPath string
}

func (b SysfsBackend) Hold(name string, timeout time.Duration) error {
	v := name
	if timeout > 0 {
		v += " " + strconv.FormatInt(timeout.Nanoseconds(), 10)
	}
	return writeFile(b.LockPath, v)
}

func (b SysfsBackend) Drop(name string) error {
	return writeFile(b.UnlockPath, name)
}

func writeFile(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(value); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Lock is a named wake lock lease.
type Lock struct {
	name    string
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	held  bool
}

// New returns an unheld lock. A nil backend makes the lock purely logical.
func New(name string, backend Backend, logger *slog.Logger) *Lock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lock{
		name:    name,
		backend: backend,
		logger:  logger.With("component", "wakelock", "name", name),
	}
}

// Acquire holds the lock for timeout. It never blocks on the lease; backend
// errors are logged and the logical lease is kept.
func (l *Lock) Acquire(timeout time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backend != nil {
		if err := l.backend.Hold(l.name, timeout); err != nil {
			l.logger.Debug("wake lock hold failed", "error", err)
		}
	}

	l.gen++
	gen := l.gen
	l.held = true
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(timeout, func() { l.expire(gen) })
}

func (l *Lock) expire(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// a later Acquire or Release owns the lease now
	if gen != l.gen || !l.held {
		return
	}
	l.held = false
	l.timer = nil
	l.logger.Debug("wake lock expired")
}

// Release ends the lease early. Releasing an unheld lock does nothing.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.gen++
	l.held = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.backend != nil {
		if err := l.backend.Drop(l.name); err != nil {
			l.logger.Debug("wake lock drop failed", "error", err)
		}
	}
}

// Held reports whether the lease is active.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
