package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rapidtriage"

// Metrics holds Prometheus metrics for RapidTriage. All methods are safe to
// call on a nil *Metrics.
type Metrics struct {
	// Lookup metrics
	Lookups        *prometheus.CounterVec
	LookupAttempts *prometheus.CounterVec
	LookupRetries  prometheus.Counter
	LookupDuration prometheus.Histogram

	// Ingestion metrics
	ReportsScanned      *prometheus.CounterVec
	AddressesDiscovered prometheus.Gauge

	// API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Lookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Final lookup outcomes by verdict",
			},
			[]string{"outcome"},
		),
		LookupAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookup_attempts_total",
				Help:      "Individual provider calls by result",
			},
			[]string{"result"},
		),
		LookupRetries: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookup_retries_total",
				Help:      "Lookups retried after a transient failure",
			},
		),
		LookupDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_seconds",
				Help:      "Provider call duration",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		ReportsScanned: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_scanned_total",
				Help:      "Triage report files processed by status",
			},
			[]string{"status"},
		),
		AddressesDiscovered: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "addresses_discovered",
				Help:      "Unique public addresses found by the most recent run",
			},
		),
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"method", "path"},
		),
	}
}

// RecordLookup counts one final outcome.
func (m *Metrics) RecordLookup(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

// RecordAttempt counts one provider call and its duration.
func (m *Metrics) RecordAttempt(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupAttempts.WithLabelValues(result).Inc()
	m.LookupDuration.Observe(d.Seconds())
}

// RecordRetry counts one retry.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.LookupRetries.Inc()
}

// RecordReport counts one report file as "ok" or "error".
func (m *Metrics) RecordReport(status string) {
	if m == nil {
		return
	}
	m.ReportsScanned.WithLabelValues(status).Inc()
}

// SetAddressesDiscovered records the size of the master list.
func (m *Metrics) SetAddressesDiscovered(n int) {
	if m == nil {
		return
	}
	m.AddressesDiscovered.Set(float64(n))
}

// RecordRequest counts one HTTP request.
func (m *Metrics) RecordRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
