package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "municipality"

// Collector manages Prometheus metrics for the citizen services backend
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	transitionsTotal     *prometheus.CounterVec
	paymentAttemptsTotal *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	remindersSent        prometheus.Counter
	realtimeConnections  prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_transitions_total",
				Help:      "Total number of lifecycle status transitions",
			},
			[]string{"entity", "status"},
		),
		paymentAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_attempts_total",
				Help:      "Total number of payment attempts by outcome",
			},
			[]string{"outcome"},
		),
		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of notifications dispatched",
			},
			[]string{"type", "result"},
		),
		remindersSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_reminders_total",
				Help:      "Total number of payment reminders sent",
			},
		),
		realtimeConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_connections",
				Help:      "Number of open websocket connections",
			},
		),
	}
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Transition records an entity entering status
func (c *Collector) Transition(entity, status string) {
	c.transitionsTotal.WithLabelValues(entity, status).Inc()
}

// PaymentAttempt records a gateway outcome: approved, declined or error
func (c *Collector) PaymentAttempt(outcome string) {
	c.paymentAttemptsTotal.WithLabelValues(outcome).Inc()
}

// NotificationDispatched records a notification write: stored or failed
func (c *Collector) NotificationDispatched(notificationType, result string) {
	c.notificationsTotal.WithLabelValues(notificationType, result).Inc()
}

// ReminderSent counts a scheduled payment reminder
func (c *Collector) ReminderSent() {
	c.remindersSent.Inc()
}

// ConnectionOpened and ConnectionClosed track websocket clients
func (c *Collector) ConnectionOpened() { c.realtimeConnections.Inc() }
func (c *Collector) ConnectionClosed() { c.realtimeConnections.Dec() }

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
