package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	Registry *prometheus.Registry

	VerificationsTotal   *prometheus.CounterVec
	VerificationDuration prometheus.Histogram
	CheckerLatency       prometheus.Histogram
	CheckerErrors        *prometheus.CounterVec
	ActiveVerifications  prometheus.Gauge
	SeenFailures         prometheus.Gauge
	AuditDropped         prometheus.Counter
	RequestsInFlight     prometheus.Gauge
	CodeSizeBytes        prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		VerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "relay",
				Name:      "verifications_total",
				Help:      "Total number of verifications by outcome.",
			},
			[]string{"outcome"},
		),

		VerificationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "relay",
				Name:      "verification_duration_seconds",
				Help:      "End-to-end duration of a verification request in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		CheckerLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "relay",
				Subsystem: "checker",
				Name:      "request_duration_seconds",
				Help:      "Duration of calls to the remote proof checker.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		CheckerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "relay",
				Subsystem: "checker",
				Name:      "errors_total",
				Help:      "Failed calls to the remote proof checker by kind.",
			},
			[]string{"kind"},
		),

		ActiveVerifications: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "relay",
				Name:      "active_verifications",
				Help:      "Number of verifications waiting on the checker.",
			},
		),

		SeenFailures: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "relay",
				Name:      "seen_failures",
				Help:      "Distinct failing diagnostics remembered since startup.",
			},
		),

		AuditDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "relay",
				Subsystem: "audit",
				Name:      "dropped_total",
				Help:      "Audit records dropped because the buffer was full.",
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "relay",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		CodeSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "relay",
				Name:      "code_size_bytes",
				Help:      "Size of submitted proof code in bytes.",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
			},
		),
	}

	// Register all collectors
	reg.MustRegister(
		m.VerificationsTotal,
		m.VerificationDuration,
		m.CheckerLatency,
		m.CheckerErrors,
		m.ActiveVerifications,
		m.SeenFailures,
		m.AuditDropped,
		m.RequestsInFlight,
		m.CodeSizeBytes,
	)

	return m
}

// RecordVerification records metrics for a completed verification.
func (m *Metrics) RecordVerification(outcome string, durationSec float64) {
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
	m.VerificationDuration.Observe(durationSec)
}

// RecordCheckerError records a failed checker call by kind.
func (m *Metrics) RecordCheckerError(kind string) {
	m.CheckerErrors.WithLabelValues(kind).Inc()
}
