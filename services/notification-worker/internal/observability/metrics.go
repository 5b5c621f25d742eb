package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nw_event_consumer",
			Name:      "events_received_total",
			Help:      "Bank events pulled by the worker",
		},
		[]string{"topic"},
	)

	NotificationsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nw_event_consumer",
			Name:      "stored_total",
			Help:      "Notifications written, by event type",
		},
		[]string{"type"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nw_event_consumer",
			Name:      "delivered_total",
			Help:      "Notifications accepted by the notification function",
		},
		[]string{"type"},
	)

	DLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nw_event_consumer",
			Name:      "dlq_total",
			Help:      "Events sent to DLQ by reason",
		},
		[]string{"topic", "reason"},
	)

	ProcessLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nw_event_consumer",
			Name:      "process_duration_seconds",
			Help:      "End-to-end processing latency per event",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	InflightJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nw_event_consumer",
			Name:      "inflight_jobs",
			Help:      "Number of events currently being processed (semaphore depth)",
		},
	)
)
