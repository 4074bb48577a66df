package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kiss"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Connection metrics
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec
	ConnectionsActive   prometheus.Gauge
	QueueDepth          prometheus.Gauge

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestErrors   *prometheus.CounterVec
	ResponseBytes   prometheus.Counter
	RequestsPerConn prometheus.Histogram

	// Cache build metrics
	CacheSkipped       *prometheus.CounterVec
	CacheBuildDuration prometheus.Gauge

	// Lifecycle metrics
	LifecycleState   prometheus.Gauge
	StateTransitions *prometheus.CounterVec
	BuildInfo        *prometheus.GaugeVec
}

// NewRegistry creates a registry with all metrics registered, plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,

		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Connections accepted by the listener.",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections refused without being served, by reason.",
		}, []string{"reason"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently owned by a worker.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_queue_depth",
			Help:      "Accepted connections waiting for a worker.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests answered, by outcome.",
		}, []string{"outcome"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Requests or connections that ended in an error, by kind.",
		}, []string{"kind"}),
		ResponseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_bytes_total",
			Help:      "Bytes written in responses.",
		}),
		RequestsPerConn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "requests_per_connection",
			Help:      "Requests served on a connection before it closed.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		CacheSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_skipped_files_total",
			Help:      "Files left out of the content cache, by reason.",
		}, []string{"reason"}),
		CacheBuildDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_build_duration_seconds",
			Help:      "Time spent building the content cache.",
		}),

		LifecycleState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lifecycle_state",
			Help:      "Current lifecycle state (0 starting, 1 serving, 2 draining, 3 stopped).",
		}),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Lifecycle state transitions, by target state.",
		}, []string{"state"}),
		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information; always 1.",
		}, []string{"version", "commit", "go_version"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ConnectionsAccepted,
		r.ConnectionsRejected,
		r.ConnectionsActive,
		r.QueueDepth,
		r.RequestsTotal,
		r.RequestErrors,
		r.ResponseBytes,
		r.RequestsPerConn,
		r.CacheSkipped,
		r.CacheBuildDuration,
		r.LifecycleState,
		r.StateTransitions,
		r.BuildInfo,
	)
	return r
}

// Register adds extra collectors, such as a CacheCollector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the /metrics endpoint of the
// process-wide registry.
func Handler() http.Handler {
	return Global().Handler()
}
