// Package metrics exposes Prometheus counters for lifecycle transitions,
// notification delivery and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"task-marketplace-api/internal/marketplace"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's collectors. It satisfies the recorder
// interfaces of the marketplace engine and the notification fanout.
type Metrics struct {
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	credited      prometheus.Counter
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_transitions_total",
				Help: "Task lifecycle operations by action and result code.",
			},
			[]string{"action", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_notifications_total",
				Help: "Notification deliveries by channel and result.",
			},
			[]string{"channel", "result"},
		),
		credited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_points_credited_total",
			Help: "Task reward points credited to developers.",
		}),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketplace_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(m.transitions, m.notifications, m.credited, m.httpDuration)
	return m
}

// TransitionObserved counts one lifecycle operation. Failures are labelled
// with their API error code.
func (m *Metrics) TransitionObserved(action string, err error) {
	result := "ok"
	if err != nil {
		result = marketplace.Code(err)
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

// PointsCredited adds amount to the credited counter.
func (m *Metrics) PointsCredited(amount int) {
	if amount > 0 {
		m.credited.Add(float64(amount))
	}
}

// NotificationDelivered counts one delivery attempt on channel.
func (m *Metrics) NotificationDelivered(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

// ObserveHTTP records one request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
