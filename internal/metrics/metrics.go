// Package metrics provides Prometheus metrics for pingprobe.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pingprobe"
)

// Metrics contains the counters and histograms recorded by the ping engine
// and the sweep runner. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PingsTotal      *prometheus.CounterVec
	SocketOpens     *prometheus.CounterVec
	RTT             prometheus.Histogram
	SweepTargets    prometheus.Counter
	SweepReachable  prometheus.Counter
	SweepInProgress prometheus.Gauge
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a Metrics instance registered on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_total",
			Help:      "Total echo exchanges by outcome",
		}, []string{"outcome"}),
		SocketOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_open_total",
			Help:      "ICMP sockets opened by mode",
		}, []string{"mode"}),
		RTT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rtt_seconds",
			Help:      "Echo round-trip time",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		SweepTargets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_targets_total",
			Help:      "Hosts probed by sweeps",
		}),
		SweepReachable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_reachable_total",
			Help:      "Hosts that answered during sweeps",
		}),
		SweepInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_probes_in_progress",
			Help:      "Probes currently waiting for a reply",
		}),
	}
}

// RecordPing counts one exchange. rtt is observed only for replies.
func (m *Metrics) RecordPing(outcome string, rtt time.Duration, replied bool) {
	if m == nil {
		return
	}
	m.PingsTotal.WithLabelValues(outcome).Inc()
	if replied {
		m.RTT.Observe(rtt.Seconds())
	}
}

// RecordSocketOpen counts a successfully opened socket.
func (m *Metrics) RecordSocketOpen(mode string) {
	if m == nil {
		return
	}
	m.SocketOpens.WithLabelValues(mode).Inc()
}

// RecordSweepProbe tracks a probe from start to finish.
func (m *Metrics) RecordSweepProbe() (done func(reachable bool)) {
	if m == nil {
		return func(bool) {}
	}
	m.SweepTargets.Inc()
	m.SweepInProgress.Inc()
	return func(reachable bool) {
		m.SweepInProgress.Dec()
		if reachable {
			m.SweepReachable.Inc()
		}
	}
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
