package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Outcomes  *prometheus.CounterVec
}

// NewServerMetrics registers collectors on reg. Tests pass a fresh registry.
func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "operation_outcomes_total",
		Help:      "Checkout, status update and webhook outcomes by error kind.",
	}, []string{"operation", "kind"})

	reg.MustRegister(requests, latency, outcomes)
	return &ServerMetrics{Requests: requests, LatencyMS: latency, Outcomes: outcomes}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
