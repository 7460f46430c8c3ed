package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the service level Prometheus instruments.
type Collectors struct {
	registry *prometheus.Registry

	AdviceRequests   *prometheus.CounterVec
	GeneratorLatency prometheus.Histogram
	UpstreamFailures *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

// NewCollectors registers the instruments on a private registry.
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		AdviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteo",
			Name:      "advice_requests_total",
			Help:      "Advice payloads served, by plan tier and source.",
		}, []string{"tier", "source"}),
		GeneratorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "meteo",
			Name:      "generator_duration_seconds",
			Help:      "Latency of text generator calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteo",
			Name:      "upstream_failures_total",
			Help:      "Failed calls to third party services.",
		}, []string{"upstream"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteo",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.AdviceRequests,
		c.GeneratorLatency,
		c.UpstreamFailures,
		c.HTTPRequests,
	)
	return c
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveAdvice is nil safe so domain code can run without instrumentation.
func (c *Collectors) ObserveAdvice(tier, source string) {
	if c == nil {
		return
	}
	c.AdviceRequests.WithLabelValues(tier, source).Inc()
}

// ObserveGenerator records a generator call duration in seconds.
func (c *Collectors) ObserveGenerator(seconds float64) {
	if c == nil {
		return
	}
	c.GeneratorLatency.Observe(seconds)
}

// UpstreamFailed counts a failed upstream call.
func (c *Collectors) UpstreamFailed(upstream string) {
	if c == nil {
		return
	}
	c.UpstreamFailures.WithLabelValues(upstream).Inc()
}
