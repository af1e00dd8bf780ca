// Package agent holds the module registry/dispatcher and the agent runtime
// context that the host's attach and unload entry points are wired to.
package agent

import (
	"fmt"
	"sync"

	"jvmtool_agent/internal/introspect"
	"jvmtool_agent/internal/logger"

	"github.com/phuslu/log"
)

// Host bundles the handles a module receives on attach: the runtime binding
// surface and the introspection capability.
type Host struct {
	Binder       introspect.Binder
	Introspector introspect.Introspector
}

// Module is a single instrumentation unit. OnAttach is invoked once per
// attach event; a returned error is isolated by the dispatcher and never
// stops delivery to other modules.
type Module interface {
	OnAttach(host *Host, options string) error
}

// Registry is an ordered collection of instrumentation modules. It holds no
// monitoring logic itself; it only composes modules and isolates their
// attach failures from each other.
type Registry struct {
	mu      sync.Mutex
	modules []Module
	log     log.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{log: logger.NewLoggerWithContext("registry")}
}

// Register adds a module unless the same module (by identity) is already
// present. Registration order determines dispatch order.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.modules {
		if existing == m {
			return
		}
	}
	r.modules = append(r.modules, m)
}

// Len reports the number of registered modules.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modules)
}

// DispatchAttach delivers the attach event to every registered module in
// registration order. Each module runs inside a failure boundary: an error
// return or a panic is logged and dispatch proceeds to the next module, so
// every module receives the event exactly once per call.
func (r *Registry) DispatchAttach(host *Host, options string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.modules {
		if err := r.attachOne(m, host, options); err != nil {
			r.log.Error().Err(err).Msg("Module attach failed, continuing with remaining modules")
		}
	}
}

func (r *Registry) attachOne(m Module, host *Host, options string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("module attach panicked: %v", rec)
		}
	}()
	return m.OnAttach(host, options)
}
