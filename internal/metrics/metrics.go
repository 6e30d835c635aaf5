package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus collectors for the console.
type Metrics struct {
	registry *prometheus.Registry

	// Backend call metrics.
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Optimistic fallback metrics: mutations applied locally because the
	// backend call failed.
	FallbacksTotal *prometheus.CounterVec

	// Auth metrics.
	AuthSuccessesTotal *prometheus.CounterVec
	AuthFailuresTotal  *prometheus.CounterVec

	// Store gauges.
	ActiveToasts prometheus.Gauge
	AuditEntries prometheus.Gauge

	// Mock backend.
	LoginThrottledTotal prometheus.Counter
	StartTime           prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlconsole_api_requests_total",
			Help: "Total number of backend API requests. Status 0 means the request never completed.",
		}, []string{"method", "path", "status_code"}),

		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mlconsole_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlconsole_local_fallbacks_total",
			Help: "Total number of mutations applied locally after a failed backend call.",
		}, []string{"resource", "op"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlconsole_auth_successes_total",
			Help: "Total number of successful logins.",
		}, []string{"auth_type"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlconsole_auth_failures_total",
			Help: "Total number of failed logins.",
		}, []string{"auth_type"}),

		ActiveToasts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mlconsole_active_notifications",
			Help: "Number of currently visible notifications.",
		}),

		AuditEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mlconsole_audit_entries",
			Help: "Number of entries in the bounded audit log.",
		}),

		LoginThrottledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlconsole_login_throttled_total",
			Help: "Total number of login attempts rejected by the rate limiter.",
		}),

		StartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mlconsole_start_time_seconds",
			Help: "Unix timestamp when the process started.",
		}),
	}

	reg.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.FallbacksTotal,
		m.AuthSuccessesTotal,
		m.AuthFailuresTotal,
		m.ActiveToasts,
		m.AuditEntries,
		m.LoginThrottledTotal,
		m.StartTime,
	)

	m.StartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterStateCollector registers a collector exposing state DB stats.
func (m *Metrics) RegisterStateCollector(statFunc StateStatFunc) {
	m.registry.MustRegister(NewStateCollector(statFunc))
}

// IncAPIRequest increments the request counter.
func (m *Metrics) IncAPIRequest(method, path string, statusCode int) {
	m.APIRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", statusCode)).Inc()
}

// ObserveAPIRequestDuration records a request duration.
func (m *Metrics) ObserveAPIRequestDuration(method, path string, seconds float64) {
	m.APIRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// IncFallback increments the local-fallback counter for a resource operation.
func (m *Metrics) IncFallback(resource, op string) {
	m.FallbacksTotal.WithLabelValues(resource, op).Inc()
}

// IncAuthSuccess increments the login success counter ("demo" or "remote").
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}

// IncAuthFailure increments the login failure counter.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// SetActiveToasts records the number of visible notifications.
func (m *Metrics) SetActiveToasts(n int) {
	m.ActiveToasts.Set(float64(n))
}

// SetAuditEntries records the audit log size.
func (m *Metrics) SetAuditEntries(n int) {
	m.AuditEntries.Set(float64(n))
}

// IncLoginThrottled increments the throttled-login counter.
func (m *Metrics) IncLoginThrottled() {
	m.LoginThrottledTotal.Inc()
}
