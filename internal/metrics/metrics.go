// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth operations recorded by RecordAuthAttempt.
const (
	OpRegister         = "register"
	OpLogin            = "login"
	OpRefresh          = "refresh"
	OpProviderCallback = "provider_callback"
)

// MetricsCollector is the recording surface used by services and middleware.
type MetricsCollector interface {
	RecordAuthAttempt(operation string, success bool)
	RecordRateLimited(route string)
	RecordRateLimitBackendError()
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	authAttempts    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	rateLimitErrors prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authservice_auth_attempts_total",
			Help: "Authentication attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authservice_rate_limit_rejections_total",
			Help: "Requests rejected with 429 by route.",
		}, []string{"route"}),
		rateLimitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authservice_rate_limit_backend_errors_total",
			Help: "Rate limit checks skipped because the counter backend failed.",
		}),
	}

	reg.MustRegister(c.authAttempts, c.rateLimited, c.rateLimitErrors)
	return c
}

// RecordAuthAttempt counts one attempt of operation.
func (c *Collector) RecordAuthAttempt(operation string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordRateLimited counts a 429 on route.
func (c *Collector) RecordRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

// RecordRateLimitBackendError counts a fail-open decision.
func (c *Collector) RecordRateLimitBackendError() {
	c.rateLimitErrors.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordAuthAttempt(string, bool) {}
func (Noop) RecordRateLimited(string)       {}
func (Noop) RecordRateLimitBackendError()   {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Noop{}
)
