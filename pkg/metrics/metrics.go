package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics holds the counters the BFF reports.
type StorefrontMetrics struct {
	requestDuration *prometheus.HistogramVec
	cartSync        *prometheus.CounterVec
	estimatorCap    *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
}

// New registers the storefront metrics on the provided registerer.
func New(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of handled HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	cartSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_operations_total",
		Help: "Background cart sync operations by outcome.",
	}, []string{"op", "outcome"})
	estimatorCap := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_estimator_cap_hits_total",
		Help: "Times a delivery-date search hit its iteration cap.",
	}, []string{"phase"})
	upstreamErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_errors_total",
		Help: "Failed calls to upstream collaborators.",
	}, []string{"upstream"})
	reg.MustRegister(requestDuration, cartSync, estimatorCap, upstreamErrors)
	return &StorefrontMetrics{
		requestDuration: requestDuration,
		cartSync:        cartSync,
		estimatorCap:    estimatorCap,
		upstreamErrors:  upstreamErrors,
	}
}

// ObserveRequest records the duration of a handled request.
func (m *StorefrontMetrics) ObserveRequest(method, path, status string, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncCartSync counts a background sync attempt by operation and outcome.
func (m *StorefrontMetrics) IncCartSync(op, outcome string) {
	if m == nil || m.cartSync == nil {
		return
	}
	m.cartSync.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// IncEstimatorCap counts a safety-cap hit in the named search phase.
func (m *StorefrontMetrics) IncEstimatorCap(phase string) {
	if m == nil || m.estimatorCap == nil {
		return
	}
	m.estimatorCap.WithLabelValues(normalizeLabel(phase)).Inc()
}

// IncUpstreamError counts a failed upstream call.
func (m *StorefrontMetrics) IncUpstreamError(upstream string) {
	if m == nil || m.upstreamErrors == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(normalizeLabel(upstream)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
