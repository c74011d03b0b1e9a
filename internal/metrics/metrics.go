// Package metrics provides Prometheus metrics for the foundation backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the messaging core.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec

	ConversationsCreatedTotal prometheus.Counter
	MessagesSentTotal         prometheus.Counter
	MessagesMarkedReadTotal   prometheus.Counter

	NotificationsCreatedTotal    prometheus.Counter
	NotificationsDispatchedTotal prometheus.Counter

	WSConnections prometheus.Gauge
}

// New creates and registers all metrics with reg. Passing a fresh registry
// keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundation_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		ConversationsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "foundation_conversations_created_total",
				Help: "Total number of conversations created",
			},
		),
		MessagesSentTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "foundation_messages_sent_total",
				Help: "Total number of messages sent",
			},
		),
		MessagesMarkedReadTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "foundation_messages_marked_read_total",
				Help: "Total number of messages newly marked as read",
			},
		),
		NotificationsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "foundation_notifications_created_total",
				Help: "Total number of notification records created",
			},
		),
		NotificationsDispatchedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "foundation_notifications_dispatched_total",
				Help: "Total number of scheduled notifications dispatched",
			},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "foundation_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
	}
}
