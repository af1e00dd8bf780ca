package agent

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"jvmtool_agent/internal/instlock"
	"jvmtool_agent/internal/logger"

	"github.com/phuslu/log"
)

// ErrInstanceActive is returned when another monitoring session holds the
// process-wide instance lock and a module therefore refuses to register.
var ErrInstanceActive = errors.New("another monitoring instance is already active")

// Runtime is the process-scoped agent context. It owns the module registry,
// the single-instance lock, and the instance counter, and it backs the fixed
// entry points the host invokes. Construct one Runtime at library load and
// call Shutdown exactly once at teardown.
type Runtime struct {
	registry *Registry
	lock     *instlock.Lock
	host     *Host
	log      log.Logger

	mu         sync.Mutex
	registered bool
	closed     bool

	instanceSeq atomic.Int32
}

// NewRuntime returns a runtime dispatching to host handles, with the
// instance lock rooted at lockPath.
func NewRuntime(host *Host, lockPath string) *Runtime {
	return &Runtime{
		registry: NewRegistry(),
		lock:     instlock.New(lockPath),
		host:     host,
		log:      logger.NewLoggerWithContext("agent-runtime"),
	}
}

// Registry exposes the module registry, mainly for tests.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// NextInstanceID derives a unique per-unit identifier from the process id
// and a monotonic counter.
func (r *Runtime) NextInstanceID() string {
	return fmt.Sprintf("SA_%d_%d", os.Getpid(), r.instanceSeq.Add(1)-1)
}

// RegisterExclusive registers a module guarded by the process-wide instance
// lock. The lock is acquired on the first successful registration only, not
// on every attach. When the lock is denied the module is not registered at
// all: no registry entry, no worker, no output. Repeated calls after a
// successful registration are no-ops.
func (r *Runtime) RegisterExclusive(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		return nil
	}

	status, err := r.lock.Acquire()
	if status == instlock.Denied {
		r.log.Info().Msg("Another memory SA instance is already running, skipping registration")
		return ErrInstanceActive
	}
	if err != nil {
		// Fail open: the lock could not be created for an unrelated reason,
		// monitoring proceeds without it.
		r.log.Warn().Err(err).Msg("Instance lock unavailable, continuing without it")
	}

	r.registry.Register(m)
	r.registered = true
	r.log.Info().Msg("Memory SA module registered")
	return nil
}

// AttachEntry is the fixed attach entry point invoked by the host once per
// agent load. It fans the event out through the dispatcher and reports only
// a coarse status back: failure means the host handles were unavailable,
// never a per-module error.
func (r *Runtime) AttachEntry(options string) error {
	if r.host == nil || r.host.Introspector == nil {
		return errors.New("host introspection handle unavailable")
	}
	r.registry.DispatchAttach(r.host, options)
	return nil
}

// UnloadEntry is the host unload hook. It performs no cleanup; teardown is
// driven by Shutdown. Whether the host guarantees Shutdown runs at unload
// time is an assumption of the embedding process, not of this runtime.
func (r *Runtime) UnloadEntry() {}

// Shutdown tears down every registered module that supports closing and
// releases the instance lock if this runtime holds it. Errors are logged
// and suppressed; shutdown never fails destructively. Safe to call more
// than once.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	r.registry.mu.Lock()
	modules := make([]Module, len(r.registry.modules))
	copy(modules, r.registry.modules)
	r.registry.mu.Unlock()

	for _, m := range modules {
		if closer, ok := m.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				r.log.Error().Err(err).Msg("Module teardown failed")
			}
		}
	}

	r.lock.Release()
	r.log.Info().Msg("Agent runtime shut down")
}
