package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets       = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	transitionDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
)

// Metrics holds the Prometheus instruments of the service.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Workflow
	TransitionsTotal   *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec

	// Jobs
	RemindersSentTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// InitMetrics creates and registers all instruments on reg.
func InitMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docflow_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docflow_transitions_total",
			Help: "Workflow operations by action and outcome.",
		}, []string{"action", "outcome"}),
		TransitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docflow_transition_duration_seconds",
			Help:    "Workflow operation duration in seconds.",
			Buckets: transitionDurationBuckets,
		}, []string{"action"}),

		RemindersSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docflow_reminders_sent_total",
			Help: "Stale inbox reminder emails queued.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TransitionsTotal,
		m.TransitionDuration,
		m.RemindersSentTotal,
	)
	return m
}

// ObserveTransition implements routing.Recorder.
func (m *Metrics) ObserveTransition(action, outcome string, elapsed time.Duration) {
	m.TransitionsTotal.WithLabelValues(action, outcome).Inc()
	m.TransitionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordReminders counts queued reminder emails.
func (m *Metrics) RecordReminders(n int) {
	m.RemindersSentTotal.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
