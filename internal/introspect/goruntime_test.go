package introspect

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGoRuntimeHeapUsage(t *testing.T) {
	g := NewGoRuntime()

	hu, err := g.HeapUsage()
	if err != nil {
		t.Fatalf("HeapUsage failed: %v", err)
	}
	if hu.Used <= 0 {
		t.Errorf("Used = %d, want positive", hu.Used)
	}
	if hu.Committed < hu.Used {
		t.Errorf("Committed %d below Used %d", hu.Committed, hu.Used)
	}
}

func TestGoRuntimePoolUsage(t *testing.T) {
	g := NewGoRuntime()

	pools, err := g.PoolUsage()
	if err != nil {
		t.Fatalf("PoolUsage failed: %v", err)
	}
	if len(pools) == 0 {
		t.Fatal("no memory pools reported")
	}

	var sawObjects bool
	for _, p := range pools {
		if strings.HasPrefix(p.Name, "/") || strings.HasSuffix(p.Name, ":bytes") {
			t.Errorf("pool name %q not trimmed", p.Name)
		}
		if p.Name == "heap/objects" {
			sawObjects = true
			if p.Used <= 0 {
				t.Errorf("heap/objects usage = %d, want positive", p.Used)
			}
		}
	}
	if !sawObjects {
		t.Error("expected a heap/objects pool")
	}
}

func TestGoRuntimeBindUnbind(t *testing.T) {
	g := NewGoRuntime()
	if err := g.BindCurrentThread(); err != nil {
		t.Fatalf("BindCurrentThread failed: %v", err)
	}
	g.UnbindCurrentThread()
}

func TestGoRuntimeGCCallbacks(t *testing.T) {
	g := NewGoRuntime()

	events := make(chan string, 64)
	err := g.RegisterGCCallbacks(
		func(at time.Time) { events <- "start" },
		func(at time.Time) { events <- "finish" },
	)
	if err != nil {
		t.Fatalf("RegisterGCCallbacks failed: %v", err)
	}
	defer g.UnregisterGCCallbacks()

	var sawStart, sawFinish bool
	deadline := time.After(5 * time.Second)
	for !(sawStart && sawFinish) {
		runtime.GC()
		select {
		case e := <-events:
			switch e {
			case "start":
				sawStart = true
			case "finish":
				sawFinish = true
			}
		case <-deadline:
			t.Fatalf("no GC events observed (start=%v finish=%v)", sawStart, sawFinish)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestGoRuntimeUnregisterStopsDelivery(t *testing.T) {
	g := NewGoRuntime()

	events := make(chan struct{}, 64)
	if err := g.RegisterGCCallbacks(nil, func(at time.Time) { events <- struct{}{} }); err != nil {
		t.Fatal(err)
	}

	// Wait for at least one delivery, then unregister.
	deadline := time.After(5 * time.Second)
	for delivered := false; !delivered; {
		runtime.GC()
		select {
		case <-events:
			delivered = true
		case <-deadline:
			t.Fatal("no GC event before unregister")
		case <-time.After(20 * time.Millisecond):
		}
	}

	g.UnregisterGCCallbacks()

	// One in-flight sentinel may still fire; afterwards the stream stays
	// quiet because the sentinel is no longer re-armed.
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	drain(events)
	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(20 * time.Millisecond)
	}
	select {
	case <-events:
		t.Error("GC events still delivered after unregister")
	default:
	}
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
