// Package metrics records per-endpoint Prometheus metrics for registries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bjaus/apikit"
)

// Collector holds the request metrics of one service.
type Collector struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	RateLimitHits    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates a collector and registers its metrics with reg. When reg
// is nil the default registry is used.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer, ok := reg.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"endpoint", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limited requests",
			},
			[]string{"endpoint"},
		),
		gatherer: gatherer,
	}
}

// Endpoint returns endpoint-aware middleware that labels metrics with the
// endpoint name. Install it with apikit.WithEndpointMiddleware.
func (c *Collector) Endpoint() apikit.EndpointMiddleware {
	return func(ep apikit.Endpoint) apikit.Middleware {
		name := Label(ep)
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.RequestsInFlight.Inc()
				defer c.RequestsInFlight.Dec()

				start := time.Now()
				sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
				next.ServeHTTP(sw, r)

				c.RequestsTotal.WithLabelValues(name, ep.Method, strconv.Itoa(sw.status)).Inc()
				c.RequestDuration.WithLabelValues(name, ep.Method).Observe(time.Since(start).Seconds())
			})
		}
	}
}

// RateLimited counts a rejected request against the endpoint serving r.
func (c *Collector) RateLimited(r *http.Request) {
	name := "unknown"
	if ep, ok := apikit.EndpointFrom(r.Context()); ok {
		name = Label(ep)
	}
	c.RateLimitHits.WithLabelValues(name).Inc()
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Label is the endpoint label value: the endpoint name, or its path when
// unnamed.
func Label(ep apikit.Endpoint) string {
	if ep.Name != "" {
		return ep.Name
	}
	return ep.Path
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
