// Package instlock provides a coarse, filesystem-based mutual exclusion gate
// that limits the host process to a single active monitoring session.
//
// The lock is deliberately crash-unsafe: a stale artifact left behind by a
// crashed process blocks future sessions until it is removed manually. That
// tradeoff is accepted; the gate only needs to stop concurrent agent loads
// from running duplicate sampling loops against the same output.
package instlock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPath is the well-known lock artifact location.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "jvmtool_memory_sa_lock")
}

// Status is the result of an acquisition attempt.
type Status int

const (
	// Granted means the caller may run a session. It is also returned when
	// creation fails for a reason other than "already exists": the lock
	// fails open rather than blocking monitoring on unrelated filesystem
	// errors.
	Granted Status = iota
	// Denied means the artifact already exists and another session is
	// presumed active.
	Denied
)

// Lock is a single-acquisition filesystem lock. Only the Lock that actually
// created the artifact removes it on Release.
type Lock struct {
	mu   sync.Mutex
	path string
	held bool
}

// New returns an unacquired lock on the given artifact path.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquire attempts exclusive creation of the lock artifact, writing the
// owning pid into it for diagnostics. Calling Acquire while already held
// returns Granted without touching the filesystem.
func (l *Lock) Acquire() (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return Granted, nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Denied, nil
		}
		// Fail open: the artifact was not created, so this Lock is not the
		// holder and Release will not remove someone else's file.
		return Granted, fmt.Errorf("create lock file %s: %w", l.path, err)
	}

	fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()
	l.held = true
	return Granted, nil
}

// Held reports whether this Lock created the artifact.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Release removes the artifact if this Lock created it. Idempotent and safe
// to call when not held.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return
	}
	os.Remove(l.path)
	l.held = false
}
