package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequests counts served requests by route pattern and status.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nss_http_requests_total",
		Help: "HTTP requests served, by method, route pattern and status code.",
	}, []string{"method", "route", "code"})

	// httpDuration tracks handler latency by route pattern.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nss_http_request_duration_seconds",
		Help:    "HTTP handler latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// instrument records every request under its chi route pattern, so
// /members/12 and /members/13 share one series.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
