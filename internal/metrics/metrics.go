package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total queue lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	activeEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_active_entries",
			Help: "Approved and in-service entries per business",
		},
		[]string{"business_id"},
	)

	pendingEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_pending_entries",
			Help: "Entries awaiting approval per business",
		},
		[]string{"business_id"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Customer notifications handed to the messaging gateway",
		},
		[]string{"template", "status"},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Currently connected queue observers",
		},
	)
)

// TrackQueueOperation counts one lifecycle operation outcome ("ok" or "error").
func TrackQueueOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queueOperations.WithLabelValues(operation, status).Inc()
}

// SetQueueLengths records the queue sizes observed after a recompute.
func SetQueueLengths(businessID string, active, pending int) {
	activeEntries.WithLabelValues(businessID).Set(float64(active))
	pendingEntries.WithLabelValues(businessID).Set(float64(pending))
}

func TrackNotification(template string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	notificationsSent.WithLabelValues(template, status).Inc()
}

func SetWebSocketConnections(n int) {
	wsConnections.Set(float64(n))
}
