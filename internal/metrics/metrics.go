// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	imported       prometheus.Counter
	authorizations *prometheus.CounterVec
	scans          *prometheus.CounterVec
	hours          prometheus.Counter
}

// New registers the collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rollcall_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		imported: f.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_students_imported_total",
			Help: "Student rows inserted by roster uploads.",
		}),
		authorizations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_authorizations_total",
			Help: "Public authorization checks by outcome.",
		}, []string{"outcome"}),
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_scans_total",
			Help: "Accepted attendance scans by action.",
		}, []string{"action"}),
		hours: f.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_hours_credited_total",
			Help: "Rendered hours credited to students.",
		}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// StudentsImported counts inserted roster rows.
func (m *Metrics) StudentsImported(n int) { m.imported.Add(float64(n)) }

// Authorization counts decisions by outcome.
func (m *Metrics) Authorization(outcome string) { m.authorizations.WithLabelValues(outcome).Inc() }

// Scan counts scans by action.
func (m *Metrics) Scan(action string) { m.scans.WithLabelValues(action).Inc() }

// HoursCredited adds credited hours; non-positive values are dropped.
func (m *Metrics) HoursCredited(hours float64) {
	if hours > 0 {
		m.hours.Add(hours)
	}
}
