package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the terminal server and the
// admin HTTP API.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	connectionsTotal prometheus.Counter
	activeSessions   prometheus.Gauge
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewMetrics initialises the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	connections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_connections_total",
		Help: "Terminal connections accepted since start.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meridian_active_sessions",
		Help: "Terminal sessions currently attached.",
	})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_commands_total",
		Help: "Protocol messages handled by prefix and outcome.",
	}, []string{"prefix", "status"})
	commandDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_command_duration_seconds",
		Help:    "Protocol message handling duration per prefix.",
		Buckets: prometheus.DefBuckets,
	}, []string{"prefix"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(connections, sessions, commands, commandDuration, requests, requestDuration)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		connectionsTotal: connections,
		activeSessions:   sessions,
		commandsTotal:    commands,
		commandDuration:  commandDuration,
		requestsTotal:    requests,
		requestDuration:  requestDuration,
	}
}

// ConnectionAccepted records a newly accepted terminal connection.
func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.activeSessions.Inc()
}

// ConnectionClosed records a terminal connection that has gone away.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// CommandHandled records one handled protocol message.
func (m *Metrics) CommandHandled(prefix, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(prefix, status).Inc()
	m.commandDuration.WithLabelValues(prefix).Observe(elapsed.Seconds())
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
