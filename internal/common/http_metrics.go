package common

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(incomingRequestsCounter)
	prometheus.MustRegister(pendingRequestsCounter)
	prometheus.MustRegister(requestDurationHistogram)
}

var incomingRequestsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"method", "path", "status"},
)

var pendingRequestsCounter = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_requests_pending",
		Help: "Total number of HTTP requests being processed",
	},
	[]string{"method", "path"},
)

var requestDurationHistogram = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers keep working behind the recorder
func (s *statusRecorder) Flush() {
	if flusher, ok := s.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// GetCommonMetricsMiddleware records request counts and latencies using
// the route template when the request was matched by a mux router so
// that path parameters do not explode label cardinality
func GetCommonMetricsMiddleware(serviceLogs chan<- ServiceLog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					path = template
				}
			}
			pendingRequestsCounter.WithLabelValues(r.Method, path).Inc()
			defer pendingRequestsCounter.WithLabelValues(r.Method, path).Dec()
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(recorder, r)
			requestDurationHistogram.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			incomingRequestsCounter.WithLabelValues(r.Method, path, strconv.Itoa(recorder.code)).Inc()
		})
	}
}
