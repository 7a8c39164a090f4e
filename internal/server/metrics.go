package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	analyzed  *prometheus.CounterVec
	overrides *prometheus.CounterVec
	duration  prometheus.Histogram
	cached    prometheus.GaugeFunc
}

func newMetrics(cached func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablescope_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		analyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablescope_datasets_analyzed_total",
			Help: "Uploaded datasets by file extension.",
		}, []string{"format"}),
		overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablescope_type_overrides_total",
			Help: "Column type overrides by outcome.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tablescope_analysis_duration_seconds",
			Help:    "Time spent decoding and analysing an upload.",
			Buckets: prometheus.DefBuckets,
		}),
		cached: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tablescope_cached_datasets",
			Help: "Datasets currently held in the cache.",
		}, cached),
	}
	m.registry.MustRegister(m.requests, m.analyzed, m.overrides, m.duration, m.cached,
		collectors.NewGoCollector())
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument counts requests by matched route pattern.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

func (m *metrics) observe(start time.Time) {
	m.duration.Observe(time.Since(start).Seconds())
}
