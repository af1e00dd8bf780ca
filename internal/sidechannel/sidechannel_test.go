package sidechannel

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestSentinelLines(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.TempOutput("/tmp/jvmtool_sa_123.log")
	c.AnalysisComplete("/tmp/jvmtool_sa_123.log")
	c.Eventf("gc event at %s", "2024-01-01 00:00:00")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"JVMTOOL_TEMP_OUTPUT:/tmp/jvmtool_sa_123.log",
		"JVMTOOL_ANALYSIS_COMPLETE:/tmp/jvmtool_sa_123.log",
		"gc event at 2024-01-01 00:00:00",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestConcurrentWritersKeepLinesIntact(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Eventf("event-line")
			}
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if line != "event-line" {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}
