// Package memsampler implements the memory sampling instrumentation module:
// a stateful monitoring session that runs a background sampling loop against
// the host's introspection capability and reports to an append-only file,
// with sentinel handshake lines for an external controller.
package memsampler

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"jvmtool_agent/internal/agent"
	"jvmtool_agent/internal/introspect"
	"jvmtool_agent/internal/logger"
	"jvmtool_agent/internal/report"
	"jvmtool_agent/internal/sidechannel"

	"github.com/phuslu/log"
)

// moduleTag prefixes every top-level report line.
const moduleTag = "[memory-sa]"

// DefaultSamplePeriod is the sleep between sampling iterations. It bounds
// responsiveness to stop and timeout requests to at most one period.
const DefaultSamplePeriod = 10 * time.Second

// Sampler is the memory sampling module. At most one worker goroutine runs
// per Sampler; a re-attach fully stops and joins the previous worker before
// reconfiguring. Safe for a concurrent attach/teardown pair, which are
// serialized on the lifecycle mutex.
type Sampler struct {
	log     log.Logger
	side    *sidechannel.Channel
	metrics *Metrics

	instanceID string
	tempDir    string
	period     time.Duration

	// lifecycle serializes OnAttach against Close.
	lifecycle sync.Mutex

	opts       Options
	tempOutput bool
	writer     *report.LineWriter
	gcNotifier introspect.GCNotifier

	monitoring atomic.Bool
	done       chan struct{}
}

// New constructs an idle sampler. instanceID should come from
// agent.Runtime.NextInstanceID; metrics may be nil.
func New(instanceID, tempDir string, side *sidechannel.Channel, metrics *Metrics) *Sampler {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Sampler{
		log:        logger.NewLoggerWithContext("memsampler"),
		side:       side,
		metrics:    metrics,
		instanceID: instanceID,
		tempDir:    tempDir,
		period:     DefaultSamplePeriod,
	}
}

// SetSamplePeriod overrides the sleep between sampling iterations. Call
// before the attach event is delivered.
func (s *Sampler) SetSamplePeriod(d time.Duration) {
	if d > 0 {
		s.period = d
	}
}

// OutputPath returns the report destination of the current configuration.
// Empty until the first attach.
func (s *Sampler) OutputPath() string {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.opts.Output
}

// Monitoring reports whether a sampling worker is active.
func (s *Sampler) Monitoring() bool {
	return s.monitoring.Load()
}

// OnAttach implements agent.Module. It stops any previous session, parses
// the options, assigns a temporary output path when none was given, emits
// the identity lines and (for temporary outputs) the discovery handshake,
// registers GC callbacks best-effort, and starts the sampling worker.
func (s *Sampler) OnAttach(host *agent.Host, options string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopWorkerLocked(true)

	opts, err := ParseOptions(options)
	if err != nil {
		// Recoverable: the failed key keeps its default, everything else
		// from the option string still applies.
		s.log.Warn().Err(err).Str("options", options).Msg("Ignoring invalid attach option")
	}
	s.opts = opts

	s.tempOutput = false
	if s.opts.Output == "" {
		s.opts.Output = filepath.Join(s.tempDir, fmt.Sprintf("jvmtool_sa_%d.log", os.Getpid()))
		s.tempOutput = true
	}
	s.writer = report.NewLineWriter(s.opts.Output)

	s.registerGCHooks(host)

	s.write(moduleTag + " Memory SA module loaded [" + s.instanceID + "]")
	s.write(moduleTag + " Output will be written to: " + s.opts.Output)

	if s.tempOutput {
		s.side.TempOutput(s.opts.Output)
	}

	s.monitoring.Store(true)
	s.done = make(chan struct{})
	go s.run(host, s.writer, s.opts, s.done)
	return nil
}

// Close implements io.Closer and tears the session down: stop and join the
// worker, drop GC callbacks, and emit the completion handshake when a
// temporary output path was used. It never fails.
func (s *Sampler) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopWorkerLocked(false)

	if s.gcNotifier != nil {
		s.gcNotifier.UnregisterGCCallbacks()
		s.gcNotifier = nil
	}

	if s.tempOutput && s.opts.Output != "" {
		s.side.AnalysisComplete(s.opts.Output)
		s.tempOutput = false
	}
	return nil
}

// stopWorkerLocked clears the active flag and joins the worker if one is
// running. Callers hold s.lifecycle.
func (s *Sampler) stopWorkerLocked(announce bool) {
	if s.monitoring.Load() && announce {
		s.write(moduleTag + " Stopping previous monitoring session...")
	}
	s.monitoring.Store(false)
	if s.done != nil {
		<-s.done
		s.done = nil
	}
}

// registerGCHooks negotiates the GC event capability with the introspection
// handle. Failure is non-fatal: it is reported once through the regular
// output channel and sampling proceeds unaffected. The callbacks run outside
// the session's call context and therefore write directly to the side
// channel, never through session state.
func (s *Sampler) registerGCHooks(host *agent.Host) {
	s.gcNotifier = nil

	notifier, ok := host.Introspector.(introspect.GCNotifier)
	err := introspect.ErrUnsupported
	if ok {
		side, metrics := s.side, s.metrics
		err = notifier.RegisterGCCallbacks(
			func(at time.Time) {
				if metrics != nil {
					metrics.RecordGCStart()
				}
				side.Eventf("%s GC started at %s", moduleTag, at.Format(report.TimeLayout))
			},
			func(at time.Time) {
				if metrics != nil {
					metrics.RecordGCFinish()
				}
				side.Eventf("%s GC finished at %s", moduleTag, at.Format(report.TimeLayout))
			})
	}

	if err != nil {
		s.write(moduleTag + " Warning: failed to register GC event callbacks: " + err.Error())
		s.log.Warn().Err(err).Msg("GC event capability unavailable, continuing without it")
		return
	}
	s.gcNotifier = notifier
	s.log.Debug().Msg("GC event callbacks registered")
}

// run is the worker body. Failures inside the worker are terminal for this
// session only; nothing propagates back to the attach caller.
func (s *Sampler) run(host *agent.Host, w *report.LineWriter, opts Options, done chan struct{}) {
	defer close(done)
	defer s.monitoring.Store(false)

	if err := host.Binder.BindCurrentThread(); err != nil {
		s.writeTo(w, moduleTag+" Failed to bind monitoring thread: "+err.Error())
		return
	}
	defer host.Binder.UnbindCurrentThread()

	start := time.Now()
	duration := time.Duration(opts.DurationSeconds) * time.Second

	s.writeTo(w, fmt.Sprintf("%s Starting memory analysis for %d seconds...", moduleTag, opts.DurationSeconds))

	for s.monitoring.Load() {
		if time.Since(start) >= duration {
			s.writeTo(w, moduleTag+" Analysis duration completed, stopping monitoring...")
			break
		}

		if opts.samplingEnabled() {
			s.sampleHeap(host.Introspector, w)
			s.samplePools(host.Introspector, w)
		}

		time.Sleep(s.period)
	}

	s.writeTo(w, moduleTag+" Memory analysis completed")
}

// sampleHeap collects one heap snapshot. A failed query skips the sample.
func (s *Sampler) sampleHeap(in introspect.Introspector, w *report.LineWriter) {
	hu, err := in.HeapUsage()
	if err != nil {
		s.log.Debug().Err(err).Msg("Skipping heap sample")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordHeap(hu.Used, hu.Committed, hu.Max)
	}

	maxText := "unlimited"
	var usage float64
	if hu.Max >= 0 {
		maxText = report.FormatBytes(hu.Max)
	}
	if hu.Max > 0 {
		usage = float64(hu.Used) / float64(hu.Max) * 100
	}

	s.writeTo(w, moduleTag+" Heap analysis at "+time.Now().Format(report.TimeLayout))
	s.writeTo(w, "  Used: "+report.FormatBytes(hu.Used))
	s.writeTo(w, "  Committed: "+report.FormatBytes(hu.Committed))
	s.writeTo(w, "  Max: "+maxText)
	s.writeTo(w, fmt.Sprintf("  Usage: %.2f%%", usage))
}

// samplePools collects one per-pool snapshot. A failed query skips the
// sample.
func (s *Sampler) samplePools(in introspect.Introspector, w *report.LineWriter) {
	pools, err := in.PoolUsage()
	if err != nil {
		s.log.Debug().Err(err).Msg("Skipping pool sample")
		return
	}

	s.writeTo(w, moduleTag+" Memory pool analysis:")
	for _, p := range pools {
		line := fmt.Sprintf("  Pool '%s': %s", p.Name, report.FormatBytes(p.Used))
		if p.Max > 0 {
			pct := float64(p.Used) / float64(p.Max) * 100
			line += fmt.Sprintf(" / %s (%.1f%%)", report.FormatBytes(p.Max), pct)
		}
		s.writeTo(w, line)
	}
}

// write appends to the current report file, if one is configured.
func (s *Sampler) write(message string) {
	s.writeTo(s.writer, message)
}

func (s *Sampler) writeTo(w *report.LineWriter, message string) {
	if w == nil {
		return
	}
	if err := w.WriteLine(message); err != nil {
		s.log.Debug().Err(err).Msg("Dropped report line")
	}
}
