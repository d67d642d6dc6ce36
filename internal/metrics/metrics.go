// Package metrics exposes the Prometheus collectors of the admin server and
// the provisioning service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collectors registered on one registry.
type Metrics struct {
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	provisionTotal      *prometheus.CounterVec
	provisionDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. Call once per
// registry; a second registration panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mongoly",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mongoly",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		provisionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mongoly",
				Name:      "provision_steps_total",
				Help:      "Provisioning steps by collection, step and outcome",
			},
			[]string{"collection", "step", "result"}, // step: schema|indexes
		),
		provisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mongoly",
				Name:      "provision_duration_seconds",
				Help:      "Duration of provisioning one collection",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection"},
		),
	}
	reg.MustRegister(m.httpRequestDuration, m.httpRequestsTotal, m.provisionTotal, m.provisionDuration)
	return m
}

// ObserveStep counts one provisioning step outcome (created, updated,
// unchanged, applied, skipped, error). Safe on a nil receiver.
func (m *Metrics) ObserveStep(collection, step, result string) {
	if m == nil {
		return
	}
	m.provisionTotal.WithLabelValues(collection, step, result).Inc()
}

// ObserveCollection records how long provisioning one collection took.
// Safe on a nil receiver.
func (m *Metrics) ObserveCollection(collection string, seconds float64) {
	if m == nil {
		return
	}
	m.provisionDuration.WithLabelValues(collection).Observe(seconds)
}
