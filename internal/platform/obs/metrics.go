package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routeweather"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "route"})

	OutboundRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbound",
		Name:      "requests_total",
		Help:      "Outbound provider calls by final outcome",
	}, []string{"provider", "outcome"})

	OutboundRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbound",
		Name:      "retries_total",
		Help:      "Outbound provider call retries",
	}, []string{"provider"})

	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "op",
		Name:      "duration_seconds",
		Help:      "Duration of timed internal operations",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"op", "outcome"})

	SamplePointsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sampler",
		Name:      "points_total",
		Help:      "Sample points emitted by kind",
	}, []string{"kind"})

	DegradedPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "degraded_points_total",
		Help:      "Sample points whose weather could not be resolved, by reason",
	}, []string{"reason"})

	WeatherCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "weather_lookups_total",
		Help:      "Weather cache lookups by result",
	}, []string{"result"})

	GeocodeMemoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "postal_lookups_total",
		Help:      "Reverse geocode memo lookups by result",
	}, []string{"result"})
)

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
