// Package sidechannel carries the sentinel lines an external controller
// parses to discover dynamically chosen output paths, plus GC event lines
// that must not go through session-owned state. Writes go straight to the
// underlying writer (stderr by default), unbuffered, so the controller can
// pick up a handshake before the session completes.
package sidechannel

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Sentinel prefixes; the only machine-parseable surfaces of the agent.
const (
	TempOutputPrefix       = "JVMTOOL_TEMP_OUTPUT:"
	AnalysisCompletePrefix = "JVMTOOL_ANALYSIS_COMPLETE:"
)

// Channel serializes sentinel and event lines onto a single writer.
type Channel struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns a channel writing to w.
func New(w io.Writer) *Channel {
	return &Channel{w: w}
}

// Stderr returns a channel writing to the process standard error stream,
// where the jvmtool controller expects handshake lines.
func Stderr() *Channel {
	return New(os.Stderr)
}

// TempOutput announces a temporary output path before monitoring starts.
func (c *Channel) TempOutput(path string) {
	c.line(TempOutputPrefix + path)
}

// AnalysisComplete announces, at teardown, that the temporary output is
// complete and ready to be consumed.
func (c *Channel) AnalysisComplete(path string) {
	c.line(AnalysisCompletePrefix + path)
}

// Eventf writes a free-form event line, used by GC hook callbacks that run
// outside the session's call context.
func (c *Channel) Eventf(format string, args ...any) {
	c.line(fmt.Sprintf(format, args...))
}

func (c *Channel) line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, s)
}
