package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidentrelay",
			Name:      "notifications_sent_total",
			Help:      "Total notification sends by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "incidentrelay",
			Name:      "notification_send_duration_seconds",
			Help:      "Time spent delivering a notification, retries included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	sendRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidentrelay",
			Name:      "notification_send_retries_total",
			Help:      "Total retry attempts by channel.",
		},
		[]string{"channel"},
	)
)
