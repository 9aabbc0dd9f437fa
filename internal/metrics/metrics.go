// Package metrics provides the Prometheus metrics exposed by the plate service.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains every collector registered by the service.
type Metrics struct {
	DetectionsCreated       prometheus.Counter
	AuthorizedPlatesCreated prometheus.Counter
	StoreErrors             *prometheus.CounterVec
	RequestDuration         *prometheus.HistogramVec
	LiveViewers             prometheus.Gauge
	registry                *prometheus.Registry
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		DetectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plates_detections_created_total",
			Help: "Total number of detection records stored",
		}),
		AuthorizedPlatesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plates_authorized_created_total",
			Help: "Total number of plates added to the allow-list",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plates_store_errors_total",
			Help: "Total number of failed store operations by operation and failure kind",
		}, []string{"operation", "kind"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plates_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, route pattern and status code",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route", "status"}),
		LiveViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plates_live_viewers",
			Help: "Number of connected live feed viewers",
		}),
	}

	collectors := []prometheus.Collector{
		m.DetectionsCreated,
		m.AuthorizedPlatesCreated,
		m.StoreErrors,
		m.RequestDuration,
		m.LiveViewers,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// StoreError counts one failed store operation.
func (m *Metrics) StoreError(operation, kind string) {
	m.StoreErrors.WithLabelValues(operation, kind).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
