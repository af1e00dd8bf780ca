package instlock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireWritesPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l := New(path)

	status, err := l.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if status != Granted {
		t.Fatalf("expected Granted, got %v", status)
	}
	if !l.Held() {
		t.Error("expected lock to be held after grant")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("lock artifact missing: %v", err)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock content = %q, want own pid", data)
	}
}

func TestAcquireDeniedWhenArtifactExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	first := New(path)
	if status, _ := first.Acquire(); status != Granted {
		t.Fatalf("first acquire should be granted, got %v", status)
	}

	second := New(path)
	status, err := second.Acquire()
	if err != nil {
		t.Fatalf("denied acquire should not error: %v", err)
	}
	if status != Denied {
		t.Fatalf("expected Denied, got %v", status)
	}
	if second.Held() {
		t.Error("denied lock must not be held")
	}

	// Release by a non-holder must not remove the artifact.
	second.Release()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact removed by non-holder: %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l := New(path)

	if status, _ := l.Acquire(); status != Granted {
		t.Fatal("initial acquire not granted")
	}
	l.Release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("artifact should be removed by holder release")
	}

	// Idempotent.
	l.Release()

	if status, _ := l.Acquire(); status != Granted {
		t.Error("reacquire after release should be granted")
	}
}

func TestAcquireWhileHeldIsGranted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l := New(path)

	if status, _ := l.Acquire(); status != Granted {
		t.Fatal("initial acquire not granted")
	}
	if status, err := l.Acquire(); status != Granted || err != nil {
		t.Errorf("repeated acquire = (%v, %v), want (Granted, nil)", status, err)
	}
}

func TestStaleArtifactBlocks(t *testing.T) {
	// A leftover artifact from a crashed process keeps denying; that is the
	// documented tradeoff, not something Acquire works around.
	path := filepath.Join(t.TempDir(), "lock")
	if err := os.WriteFile(path, []byte("99999"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(path)
	if status, _ := l.Acquire(); status != Denied {
		t.Error("stale artifact should deny acquisition")
	}
}
