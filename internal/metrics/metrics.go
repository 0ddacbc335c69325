package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studiobook"

// Metrics holds Prometheus metrics for the availability engine.
type Metrics struct {
	// HTTPRequests counts API requests by route, method and status code.
	HTTPRequests *prometheus.CounterVec

	// Computations counts service operations by outcome.
	Computations *prometheus.CounterVec

	// ComputationDuration is the latency of service operations.
	ComputationDuration *prometheus.HistogramVec

	// SkippedRecords counts malformed upstream records left out of a computation.
	SkippedRecords *prometheus.CounterVec

	// UpstreamErrors counts failed data-source calls by endpoint.
	UpstreamErrors *prometheus.CounterVec

	// RateLimited counts requests rejected by the API rate limiter.
	RateLimited prometheus.Counter
}

// New creates metrics registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Count of API requests by route and status.",
			},
			[]string{"route", "method", "status"},
		),

		Computations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "computations_total",
				Help:      "Count of availability computations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),

		ComputationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "computation_duration_seconds",
				Help:      "Time to compute availability, including upstream fetches.",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"operation"},
		),

		SkippedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_records_total",
				Help:      "Count of malformed upstream records skipped by kind.",
			},
			[]string{"kind"},
		),

		UpstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Count of failed data-source calls by endpoint.",
			},
			[]string{"endpoint"},
		),

		RateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Count of API requests rejected by the rate limiter.",
			},
		),
	}
}

// ObserveComputation records the outcome and latency of a service operation.
func (m *Metrics) ObserveComputation(operation, outcome string, d time.Duration) {
	m.Computations.WithLabelValues(operation, outcome).Inc()
	m.ComputationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncSkipped increments the skipped-record counter.
func (m *Metrics) IncSkipped(kind string) {
	m.SkippedRecords.WithLabelValues(kind).Inc()
}

// IncUpstreamError increments the upstream error counter.
func (m *Metrics) IncUpstreamError(endpoint string) {
	m.UpstreamErrors.WithLabelValues(endpoint).Inc()
}

// IncHTTP increments the request counter.
func (m *Metrics) IncHTTP(route, method, status string) {
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
}

// IncRateLimited increments the rate limiter rejection counter.
func (m *Metrics) IncRateLimited() {
	m.RateLimited.Inc()
}
