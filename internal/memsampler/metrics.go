package memsampler

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the live monitoring session to Prometheus. The sampling
// loop and the GC callbacks update lock-free atomics; Collect reads them
// as const metrics.
type Metrics struct {
	heapUsed      atomic.Int64
	heapCommitted atomic.Int64
	heapMax       atomic.Int64
	samplesTotal  atomic.Uint64
	gcStarts      atomic.Uint64
	gcFinishes    atomic.Uint64

	heapUsedDesc      *prometheus.Desc
	heapCommittedDesc *prometheus.Desc
	heapMaxDesc       *prometheus.Desc
	samplesTotalDesc  *prometheus.Desc
	gcEventsDesc      *prometheus.Desc
}

// NewMetrics creates the session metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		heapUsedDesc: prometheus.NewDesc(
			"jvmtool_heap_used_bytes",
			"Used heap bytes from the last sample.",
			nil, nil),
		heapCommittedDesc: prometheus.NewDesc(
			"jvmtool_heap_committed_bytes",
			"Committed heap bytes from the last sample.",
			nil, nil),
		heapMaxDesc: prometheus.NewDesc(
			"jvmtool_heap_max_bytes",
			"Maximum heap bytes; negative when the runtime reports no bound.",
			nil, nil),
		samplesTotalDesc: prometheus.NewDesc(
			"jvmtool_samples_total",
			"Total heap samples collected.",
			nil, nil),
		gcEventsDesc: prometheus.NewDesc(
			"jvmtool_gc_events_total",
			"Total observed garbage collection events by phase.",
			[]string{"phase"}, nil),
	}
}

// RecordHeap stores the latest heap snapshot and bumps the sample counter.
func (m *Metrics) RecordHeap(used, committed, max int64) {
	m.heapUsed.Store(used)
	m.heapCommitted.Store(committed)
	m.heapMax.Store(max)
	m.samplesTotal.Add(1)
}

// RecordGCStart counts a collection-start event.
func (m *Metrics) RecordGCStart() { m.gcStarts.Add(1) }

// RecordGCFinish counts a collection-finish event.
func (m *Metrics) RecordGCFinish() { m.gcFinishes.Add(1) }

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.heapUsedDesc
	ch <- m.heapCommittedDesc
	ch <- m.heapMaxDesc
	ch <- m.samplesTotalDesc
	ch <- m.gcEventsDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		m.heapUsedDesc, prometheus.GaugeValue, float64(m.heapUsed.Load()))
	ch <- prometheus.MustNewConstMetric(
		m.heapCommittedDesc, prometheus.GaugeValue, float64(m.heapCommitted.Load()))
	ch <- prometheus.MustNewConstMetric(
		m.heapMaxDesc, prometheus.GaugeValue, float64(m.heapMax.Load()))
	ch <- prometheus.MustNewConstMetric(
		m.samplesTotalDesc, prometheus.CounterValue, float64(m.samplesTotal.Load()))
	ch <- prometheus.MustNewConstMetric(
		m.gcEventsDesc, prometheus.CounterValue, float64(m.gcStarts.Load()), "start")
	ch <- prometheus.MustNewConstMetric(
		m.gcEventsDesc, prometheus.CounterValue, float64(m.gcFinishes.Load()), "finish")
}
