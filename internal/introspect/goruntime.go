package introspect

import (
	"math"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"strings"
	"sync"
	"time"
)

const memClassPrefix = "/memory/classes/"

// GoRuntime introspects the Go runtime hosting this process. Heap figures
// come from runtime.ReadMemStats, pool figures from the runtime/metrics
// memory class accounting, and GC events from a re-arming finalizer
// sentinel that fires once per completed collection cycle.
type GoRuntime struct {
	mu       sync.Mutex
	gcStart  func(time.Time)
	gcFinish func(time.Time)
	armed    bool

	poolNames []string
}

// NewGoRuntime returns an introspector over the current Go runtime.
func NewGoRuntime() *GoRuntime {
	g := &GoRuntime{}
	for _, d := range metrics.All() {
		if strings.HasPrefix(d.Name, memClassPrefix) && d.Kind == metrics.KindUint64 {
			g.poolNames = append(g.poolNames, d.Name)
		}
	}
	return g
}

// BindCurrentThread pins the sampling goroutine to its OS thread for the
// duration of the loop.
func (g *GoRuntime) BindCurrentThread() error {
	runtime.LockOSThread()
	return nil
}

// UnbindCurrentThread releases the pin taken by BindCurrentThread.
func (g *GoRuntime) UnbindCurrentThread() {
	runtime.UnlockOSThread()
}

// HeapUsage reports live heap bytes, heap bytes obtained from the OS, and
// the soft memory limit if one is set (negative otherwise).
func (g *GoRuntime) HeapUsage() (HeapUsage, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	limit := debug.SetMemoryLimit(-1)
	if limit == math.MaxInt64 {
		limit = -1
	}

	return HeapUsage{
		Used:      int64(ms.HeapAlloc),
		Committed: int64(ms.HeapSys),
		Max:       limit,
	}, nil
}

// PoolUsage reports every /memory/classes/ accounting bucket exposed by
// runtime/metrics. Buckets have no individual limit, so Max is negative.
func (g *GoRuntime) PoolUsage() ([]PoolUsage, error) {
	samples := make([]metrics.Sample, len(g.poolNames))
	for i, name := range g.poolNames {
		samples[i].Name = name
	}
	metrics.Read(samples)

	pools := make([]PoolUsage, 0, len(samples))
	for _, s := range samples {
		if s.Value.Kind() != metrics.KindUint64 {
			continue
		}
		name := strings.TrimPrefix(s.Name, memClassPrefix)
		name = strings.TrimSuffix(name, ":bytes")
		pools = append(pools, PoolUsage{
			Name: name,
			Used: int64(s.Value.Uint64()),
			Max:  -1,
		})
	}
	return pools, nil
}

// RegisterGCCallbacks implements GCNotifier. Subsequent calls replace the
// previously registered callbacks.
func (g *GoRuntime) RegisterGCCallbacks(start, finish func(at time.Time)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gcStart = start
	g.gcFinish = finish
	if !g.armed {
		g.armed = true
		g.arm()
	}
	return nil
}

// UnregisterGCCallbacks implements GCNotifier.
func (g *GoRuntime) UnregisterGCCallbacks() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gcStart = nil
	g.gcFinish = nil
	g.armed = false
}

// arm plants a finalizer sentinel. The finalizer runs after the next
// collection cycle, reports the cycle, and plants a fresh sentinel so one
// notification arrives per cycle. Callers must hold g.mu.
func (g *GoRuntime) arm() {
	s := new(int)
	runtime.SetFinalizer(s, func(*int) {
		g.mu.Lock()
		start, finish, armed := g.gcStart, g.gcFinish, g.armed
		if armed {
			g.arm()
		}
		g.mu.Unlock()
		if !armed {
			return
		}

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		end := time.Unix(0, int64(ms.LastGC))
		pause := time.Duration(ms.PauseNs[(ms.NumGC+255)%256])
		if start != nil {
			start(end.Add(-pause))
		}
		if finish != nil {
			finish(end)
		}
	})
}
