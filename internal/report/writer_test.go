package report

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

var linePattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] .+$`)

func TestLineWriterFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	w := NewLineWriter(path)

	if err := w.WriteLine("first message"); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}
	if err := w.WriteLine("second message"); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report file: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !linePattern.MatchString(line) {
			t.Errorf("line %q does not match timestamped format", line)
		}
	}
	if !strings.HasSuffix(lines[0], "first message") {
		t.Errorf("first line = %q, want suffix %q", lines[0], "first message")
	}
}

func TestLineWriterUsesInjectedClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	w := NewLineWriter(path)
	w.now = func() time.Time {
		return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	}

	if err := w.WriteLine("msg"); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	want := "[2024-03-15 09:30:00] msg\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestLineWriterAppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	if err := NewLineWriter(path).WriteLine("one"); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}
	if err := NewLineWriter(path).WriteLine("two"); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("expected 2 lines after reopen, got %d", n)
	}
}
