// Package metrics exposes Prometheus instrumentation for the API: generic
// HTTP throughput/latency plus auth lifecycle counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	tokenRotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_rotations_total",
		Help: "Successful refresh token rotations.",
	})

	refreshReuseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_reuse_total",
		Help: "Refresh attempts with a revoked, expired or unknown token. Spikes suggest token theft.",
	})
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		httpRequestsTotal, httpRequestDuration,
		loginAttemptsTotal, tokenRotationsTotal, refreshReuseTotal,
	)
}

// Handler serves the /metrics scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

// LoginAttempt records a login with result "success" or "failure".
func LoginAttempt(result string) { loginAttemptsTotal.WithLabelValues(result).Inc() }

// TokenRotated records a successful refresh token rotation.
func TokenRotated() { tokenRotationsTotal.Inc() }

// RefreshReuse records a rejected refresh attempt.
func RefreshReuse() { refreshReuseTotal.Inc() }

// Instrument measures request totals and latency per route. The registered
// route path is used as the label, not the raw URL, to keep cardinality
// bounded.
func Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, path, status).Inc()
			httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
