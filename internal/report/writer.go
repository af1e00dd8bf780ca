package report

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// TimeLayout is the timestamp prefix used for every report line.
const TimeLayout = "2006-01-02 15:04:05"

// LineWriter appends timestamped lines to a report file. The file is opened
// and closed on every write so that concurrent writers (and external readers
// tailing the file) never see a partially held handle. A missing file is
// created on first write.
type LineWriter struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLineWriter returns a writer appending to path.
func NewLineWriter(path string) *LineWriter {
	return &LineWriter{path: path, now: time.Now}
}

// Path returns the destination file path.
func (w *LineWriter) Path() string {
	return w.path
}

// WriteLine appends "[YYYY-MM-DD HH:MM:SS] <message>" to the report file.
func (w *LineWriter) WriteLine(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report file %s: %w", w.path, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "[%s] %s\n", w.now().Format(TimeLayout), message)
	return err
}
