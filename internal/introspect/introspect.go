// Package introspect defines the boundary to the host runtime's memory
// introspection facilities. The sampling module only depends on these
// interfaces; concrete implementations query either the hosting Go runtime
// or an arbitrary OS process.
package introspect

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by optional capabilities an implementation
// does not provide.
var ErrUnsupported = errors.New("introspection capability not supported")

// HeapUsage is a point-in-time snapshot of heap memory. Max is negative
// when the runtime imposes no upper bound.
type HeapUsage struct {
	Used      int64
	Committed int64
	Max       int64
}

// PoolUsage is a point-in-time snapshot of one memory pool. Max is negative
// when the pool is unbounded.
type PoolUsage struct {
	Name string
	Used int64
	Max  int64
}

// Binder attaches the calling thread to the host runtime. Sampling threads
// must bind before querying and unbind when done.
type Binder interface {
	BindCurrentThread() error
	UnbindCurrentThread()
}

// Introspector queries memory statistics. Any call may fail; callers are
// expected to skip the failed sample rather than abort.
type Introspector interface {
	HeapUsage() (HeapUsage, error)
	PoolUsage() ([]PoolUsage, error)
}

// GCNotifier is the optional capability of delivering collection start and
// finish events. Capability negotiation is a type assertion against the
// Introspector followed by a Register call that may still fail.
type GCNotifier interface {
	// RegisterGCCallbacks arranges for start and finish to be invoked around
	// each observed collection cycle. Callbacks run outside any session call
	// context and must not rely on session state.
	RegisterGCCallbacks(start, finish func(at time.Time)) error
	// UnregisterGCCallbacks stops event delivery. Safe to call when nothing
	// is registered.
	UnregisterGCCallbacks()
}
