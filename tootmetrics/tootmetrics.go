// Package tootmetrics is an optional toot.MetricsSink backed by
// github.com/prometheus/client_golang, following the same
// name/help/labels-then-register shape nabbar-golib's
// prometheus/metrics package wraps around the same library (see its
// ExampleNewMetrics_counter): a CounterVec for request counts, a
// HistogramVec for latency, and a plain Gauge for server-up.
package tootmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is a Prometheus-backed toot.MetricsSink, installed with
// toot.WithMetricsSink (an Acceptor has no sink by default). Metrics are registered against
// a caller-supplied prometheus.Registerer so the embedding application
// controls where (or whether) a /metrics endpoint is exposed.
type Sink struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	up       prometheus.Gauge
}

// New registers toot's metrics against reg and returns a Sink.
func New(reg prometheus.Registerer, namespace string) (*Sink, error) {
	s := &Sink{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total requests processed, by method, path, and status.",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "1 if the acceptor is currently listening, 0 otherwise.",
		}),
	}

	for _, c := range []prometheus.Collector{s.requests, s.latency, s.up} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ObserveRequest records one completed request's status and duration,
// satisfying toot.MetricsSink.
func (s *Sink) ObserveRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusBucket(status)
	s.requests.WithLabelValues(method, path, statusStr).Inc()
	s.latency.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
}

// SetServerUp reports the acceptor's listening state as a 0/1 gauge.
func (s *Sink) SetServerUp(up bool) {
	if up {
		s.up.Set(1)
		return
	}
	s.up.Set(0)
}

func statusBucket(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
