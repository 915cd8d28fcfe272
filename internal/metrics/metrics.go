// Package metrics exposes Prometheus counters for route and request activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services report to. Collector and Nop implement it.
type Recorder interface {
	RecordRouteTransition(from, to string)
	RecordRequestAction(action, from, to string)
	RecordOperationFailure(operation string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	routeTransitions *prometheus.CounterVec
	requestActions   *prometheus.CounterVec
	opFailures       *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      prometheus.Histogram
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		routeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "street_dispatch_route_transitions_total",
			Help: "Route status changes by source and target status.",
		}, []string{"from", "to"}),
		requestActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "street_dispatch_request_actions_total",
			Help: "Request actions applied, by action and status change.",
		}, []string{"action", "from", "to"}),
		opFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "street_dispatch_operation_failures_total",
			Help: "Rejected or failed operations by name.",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "street_dispatch_http_requests_total",
			Help: "HTTP responses by method, route pattern and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "street_dispatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.routeTransitions,
		c.requestActions,
		c.opFailures,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordRouteTransition(from, to string) {
	c.routeTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordRequestAction(action, from, to string) {
	c.requestActions.WithLabelValues(action, from, to).Inc()
}

func (c *Collector) RecordOperationFailure(operation string) {
	c.opFailures.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest counts a response and observes its latency.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. The CLI uses it since a one-shot process has nothing to scrape.
type Nop struct{}

func (Nop) RecordRouteTransition(string, string)      {}
func (Nop) RecordRequestAction(string, string, string) {}
func (Nop) RecordOperationFailure(string)              {}
