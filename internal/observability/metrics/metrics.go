// Package metrics exposes prometheus instruments for the HTTP surface
// and the authentication flows.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the registry with the application instruments.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	logins        *prometheus.CounterVec
	signups       prometheus.Counter
	refreshes     *prometheus.CounterVec
	rateLimitHits *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passage_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "passage_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_logins_total",
			Help: "Login attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passage_signups_total",
			Help: "Accounts created.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_token_refreshes_total",
			Help: "Refresh-token rotations by outcome.",
		}, []string{"outcome"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_rate_limit_hits_total",
			Help: "Requests rejected by the login rate limiter.",
		}, []string{"scope"}),
	}
	registry.MustRegister(m.httpRequests, m.httpDuration, m.httpInFlight, m.logins, m.signups, m.refreshes, m.rateLimitHits)
	return m
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpInFlight.Inc()
		c.Next()
		m.httpInFlight.Dec()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Registry exposes the underlying registry for plugins that register
// their own collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordLogin(strategy string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.logins.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) RecordSignup() {
	m.signups.Inc()
}

func (m *Metrics) RecordRefresh(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRateLimitHit(scope string) {
	m.rateLimitHits.WithLabelValues(scope).Inc()
}
