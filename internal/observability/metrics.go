// Package observability provides Prometheus metrics for the analytics engine.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/fluxrx/internal/contracts"
)

const namespace = "fluxrx"

// Metrics holds all Prometheus metrics for the engine and its API.
// 각 인스턴스는 자체 Registry를 가짐 (테스트 간 충돌 없음)
type Metrics struct {
	registry *prometheus.Registry

	// Engine operations
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DomainErrors      *prometheus.CounterVec

	// Screener
	AssetsScreened *prometheus.CounterVec

	// Optimizer
	OptimizerIterations *prometheus.HistogramVec
	OptimizerRestarts   prometheus.Histogram

	// API
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	RateLimitDenied prometheus.Counter
}

// NewMetrics creates a Metrics instance on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome",
		}, []string{"operation", "status"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),
		DomainErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "domain_errors_total",
			Help:      "Domain errors by kind",
		}, []string{"kind"}),

		AssetsScreened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "assets_total",
			Help:      "Assets processed by the screener by outcome",
		}, []string{"outcome"}),

		OptimizerIterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "iterations",
			Help:      "Solver iterations per optimization",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"objective"}),
		OptimizerRestarts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "restarts",
			Help:      "max_sharpe restarts per optimization",
			Buckets:   prometheus.LinearBuckets(0, 4, 8),
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimitDenied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation records one engine operation
func (m *Metrics) ObserveOperation(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		kind := contracts.KindOf(err)
		if kind == "" {
			kind = "internal"
		}
		m.DomainErrors.WithLabelValues(string(kind)).Inc()
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveScreen records ranked/excluded counts
func (m *Metrics) ObserveScreen(res *contracts.ScreenResult) {
	if m == nil || res == nil {
		return
	}
	m.AssetsScreened.WithLabelValues("ranked").Add(float64(len(res.Ranked)))
	m.AssetsScreened.WithLabelValues("excluded").Add(float64(len(res.Excluded)))
}

// ObserveOptimization records solver effort
func (m *Metrics) ObserveOptimization(res *contracts.OptimizationResult) {
	if m == nil || res == nil {
		return
	}
	m.OptimizerIterations.WithLabelValues(res.Objective).Observe(float64(res.Iterations))
	m.OptimizerRestarts.Observe(float64(res.Restarts))
}

// ObserveHTTP records one API request
func (m *Metrics) ObserveHTTP(route string, code int, started time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}
