package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "saimeta"

// Label names
const (
	labelOperation = "operation"
	labelStatus    = "status"
	labelKind      = "kind"
)

type metrics struct {
	operations           *prometheus.CounterVec
	duration             *prometheus.HistogramVec
	bulkItems            *prometheus.CounterVec
	notifications        *prometheus.CounterVec
	notificationsDropped prometheus.Counter
	notificationQueue    prometheus.Gauge
}

// newMetrics registers the client metrics on reg. A nil reg leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total operations by verb and result status.",
		}, []string{labelOperation, labelStatus}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent in an operation, including the wait for the guarded region.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 9),
		}, []string{labelOperation}),
		bulkItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Total bulk items by verb and per-item status.",
		}, []string{labelOperation, labelStatus}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total notifications processed by kind.",
		}, []string{labelKind}),
		notificationsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications discarded because the queue was full.",
		}),
		notificationQueue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_queue_length",
			Help:      "Notifications waiting for processing.",
		}),
	}
}
