// Package observability exposes the Prometheus surface: HTTP request
// metrics plus the domain counters the sale engine and intake report.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the registry and every collector the service registers.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	salesTotal     prometheus.Counter
	salesRevenue   prometheus.Counter
	saleConflicts  prometheus.Counter
	intakeMessages *prometheus.CounterVec
}

// NewMetrics initializes the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dukapos_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dukapos_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	salesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dukapos_sales_committed_total",
		Help: "Sales committed by the transaction engine.",
	})
	salesRevenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dukapos_sales_revenue_total",
		Help: "Sum of committed sale totals.",
	})
	saleConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dukapos_sale_conflicts_total",
		Help: "Sale commit attempts retried after a serialization conflict.",
	})
	intakeMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dukapos_intake_messages_total",
		Help: "Inbound customer messages by parsed intent.",
	}, []string{"intent"})
	registry.MustRegister(requests, duration, salesTotal, salesRevenue, saleConflicts, intakeMessages)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		salesTotal:      salesTotal,
		salesRevenue:    salesRevenue,
		saleConflicts:   saleConflicts,
		intakeMessages:  intakeMessages,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
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

// SaleCommitted counts one committed sale and its revenue.
func (m *Metrics) SaleCommitted(total float64) {
	if m == nil {
		return
	}
	m.salesTotal.Inc()
	if total > 0 {
		m.salesRevenue.Add(total)
	}
}

// SaleConflict counts one retried commit attempt.
func (m *Metrics) SaleConflict() {
	if m == nil {
		return
	}
	m.saleConflicts.Inc()
}

// IntakeMessage counts one inbound message by intent label.
func (m *Metrics) IntakeMessage(intent string) {
	if m == nil {
		return
	}
	m.intakeMessages.WithLabelValues(intent).Inc()
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
