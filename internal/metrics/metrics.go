// Package metrics exposes Prometheus metrics for the bot: classification
// outcomes, event log writes, and per-event handling latency and errors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event outcome label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Manager owns the bot's collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	classifications *prometheus.CounterVec   // result
	logWrites       *prometheus.CounterVec   // op
	events          *prometheus.CounterVec   // kind, status
	eventDuration   *prometheus.HistogramVec // kind
	outboundCalls   *prometheus.CounterVec   // method, status
}

// NewManager creates a Manager with its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "agdabot",
		histogramBuckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.classifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "classifications_total",
		Help:      "Messages classified, by result (no_opinion, empty, match).",
	}, []string{"result"})

	m.logWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "log_writes_total",
		Help:      "Event log write operations issued, by op (record, erase).",
	}, []string{"op"})

	m.events = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_total",
		Help:      "Inbound events handled, by kind and status.",
	}, []string{"kind", "status"})

	m.eventDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "event_duration_seconds",
		Help:      "Time spent handling one inbound event.",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.outboundCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "outbound_calls_total",
		Help:      "Calls made to the chat transport, by method and status.",
	}, []string{"method", "status"})
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveClassification counts one classification outcome.
func (m *Manager) ObserveClassification(result string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(result).Inc()
}

// ObserveLogWrite counts one event log write.
func (m *Manager) ObserveLogWrite(op string) {
	if m == nil {
		return
	}
	m.logWrites.WithLabelValues(op).Inc()
}

// ObserveEvent records the outcome and latency of one handled event.
func (m *Manager) ObserveEvent(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, status(err)).Inc()
	m.eventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveOutbound counts one call to the chat transport.
func (m *Manager) ObserveOutbound(method string, err error) {
	if m == nil {
		return
	}
	m.outboundCalls.WithLabelValues(method, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
