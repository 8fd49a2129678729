package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AppMetrics holds the Prometheus counters for cache operations and
// recorded tracebacks.
type AppMetrics struct {
	cacheSuccess *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	tracebacks   *prometheus.CounterVec
}

// New registers the application counters with the given registerer.
func New(reg prometheus.Registerer) *AppMetrics {
	factory := promauto.With(reg)

	return &AppMetrics{
		cacheSuccess: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_success_total",
			Help: "Total number of successful cache operations",
		}, []string{"method", "path"}),
		cacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache errors",
		}, []string{"method", "path", "error_type"}),
		tracebacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "traceback_total",
			Help: "Total number of tracebacks",
		}, []string{"request_id"}),
	}
}

// RecordSuccess records a successful cache store for a route.
func (m *AppMetrics) RecordSuccess(method, path string) {
	m.cacheSuccess.WithLabelValues(method, path).Inc()
}

// RecordError records a cache failure with an error kind tag.
func (m *AppMetrics) RecordError(method, path, errorType string) {
	m.cacheErrors.WithLabelValues(method, path, errorType).Inc()
}

// RecordTraceback records an emitted exception traceback.
func (m *AppMetrics) RecordTraceback(requestID string) {
	m.tracebacks.WithLabelValues(requestID).Inc()
}
