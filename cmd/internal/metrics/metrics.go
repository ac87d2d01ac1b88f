// Package metrics exposes Prometheus instruments for the link protocol and HTTP layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mutabakat"

// Collector owns a private registry so tests and multiple servers never collide.
type Collector struct {
	reg *prometheus.Registry

	operations *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	requests   *prometheus.HistogramVec
	limited    *prometheus.CounterVec
}

// New registers every instrument plus the Go runtime and process collectors.
func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_operations_total",
			Help:      "Link protocol operations by outcome.",
		}, []string{"op", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Email handoffs by message kind and result.",
		}, []string{"kind", "result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status class.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "status_class"}),
		limited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the per-client limiter or the resend cooldown.",
		}, []string{"reason"}),
	}
	c.reg.MustRegister(
		c.operations,
		c.deliveries,
		c.requests,
		c.limited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveOperation implements reconlink.Metrics.
func (c *Collector) ObserveOperation(op, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
}

// ObserveDelivery implements reconlink.Metrics.
func (c *Collector) ObserveDelivery(kind, result string) {
	c.deliveries.WithLabelValues(kind, result).Inc()
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(route, statusClass string, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(route, statusClass).Observe(d.Seconds())
}

// ObserveRateLimited counts a refused request.
func (c *Collector) ObserveRateLimited(reason string) {
	c.limited.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }
