package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Label sets stay bounded: "path" is the registered route, never the raw URL,
// except for unmatched requests, which are exactly the ones a 404 view serves.
var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_inflight",
		Help: "Current number of in-flight HTTP requests.",
	})

	// Error pages are small; the upper buckets cover journal listings.
	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "Size of HTTP responses in bytes.",
		Buckets: prometheus.ExponentialBuckets(128, 2, 14), // 128B..1MiB
	}, []string{"method", "path"})

	// errorResponses counts error view responses by status and by how the
	// view was reached (exception, status, view).
	errorResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_error_responses_total",
		Help: "Total number of responses rendered by error views.",
	}, []string{"status", "source"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, errorResponses)
}

func observeErrorResponse(status int, source string) {
	errorResponses.WithLabelValues(strconv.Itoa(status), source).Inc()
}

// routeLabel is the matched route template, or the raw path when nothing
// matched.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// Metrics records request count, latency, in-flight gauge and response size.
// Install it outside Exceptions so the recorded status is the one the error
// view finally wrote, panics included.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		method, path := c.Request.Method, routeLabel(c)
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 { // -1: nothing written or hijacked
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
