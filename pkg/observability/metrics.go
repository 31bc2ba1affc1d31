// Package observability provides metrics and tracing for kvlink connections.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus metrics provider.
type MetricsConfig struct {
	// Namespace is the Prometheus namespace (default: kvlink).
	Namespace string

	// Subsystem is the Prometheus subsystem.
	Subsystem string

	// HistogramBuckets overrides the default latency buckets.
	HistogramBuckets []float64

	// ConstLabels are added to all metrics.
	ConstLabels prometheus.Labels

	// Registry to register on. A nil registry creates a private one.
	Registry *prometheus.Registry
}

// Metrics exposes the kvlink connection and command metrics. All record
// methods are safe to call on a nil receiver, so callers can wire metrics
// optionally without guarding every call site.
type Metrics struct {
	registry *prometheus.Registry

	commandDuration *prometheus.HistogramVec
	commandTotal    *prometheus.CounterVec

	connectAttempts prometheus.Counter
	connects        prometheus.Counter
	connectionState prometheus.Gauge
	transportLosses prometheus.Counter
}

// NewMetrics creates and registers the kvlink metrics.
func NewMetrics(config MetricsConfig) (*Metrics, error) {
	if config.Namespace == "" {
		config.Namespace = "kvlink"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	}
	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "command_duration_seconds",
			Help:        "Duration of key-value commands",
			Buckets:     config.HistogramBuckets,
			ConstLabels: config.ConstLabels,
		}, []string{"command", "status"}),
		commandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commands_total",
			Help:        "Total key-value commands by status",
			ConstLabels: config.ConstLabels,
		}, []string{"command", "status"}),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connect_attempts_total",
			Help:        "Total transport connect attempts",
			ConstLabels: config.ConstLabels,
		}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connects_total",
			Help:        "Total successful transport connects",
			ConstLabels: config.ConstLabels,
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connection_state",
			Help:        "1 while a transport is bound, 0 otherwise",
			ConstLabels: config.ConstLabels,
		}),
		transportLosses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transport_losses_total",
			Help:        "Total transport loss events",
			ConstLabels: config.ConstLabels,
		}),
	}

	collectors := []prometheus.Collector{
		m.commandDuration, m.commandTotal,
		m.connectAttempts, m.connects, m.connectionState, m.transportLosses,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordCommand records one command execution.
func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commandDuration.WithLabelValues(command, status).Observe(duration.Seconds())
	m.commandTotal.WithLabelValues(command, status).Inc()
}

// RecordConnectAttempt records one connect attempt, successful or not.
func (m *Metrics) RecordConnectAttempt() {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
}

// RecordConnected records a successful connect and marks the link bound.
func (m *Metrics) RecordConnected() {
	if m == nil {
		return
	}
	m.connects.Inc()
	m.connectionState.Set(1)
}

// RecordTransportLost records a loss event and marks the link unbound.
func (m *Metrics) RecordTransportLost() {
	if m == nil {
		return
	}
	m.transportLosses.Inc()
	m.connectionState.Set(0)
}

// SetConnectionState sets the bound/unbound gauge directly.
func (m *Metrics) SetConnectionState(bound bool) {
	if m == nil {
		return
	}
	if bound {
		m.connectionState.Set(1)
	} else {
		m.connectionState.Set(0)
	}
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
