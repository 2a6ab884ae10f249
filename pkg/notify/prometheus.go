package notify

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of notification frames received",
			Name:      "frames_received_total",
			Namespace: "evrgo",
			Subsystem: "notify",
		},
	)
	sequenceGaps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of detected per-topic sequence gaps",
			Name:      "sequence_gaps_total",
			Namespace: "evrgo",
			Subsystem: "notify",
		},
	)
	dispatchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of notification handler failures",
			Name:      "dispatch_errors_total",
			Namespace: "evrgo",
			Subsystem: "notify",
		},
	)
	transportErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of notification transport failures",
			Name:      "transport_errors_total",
			Namespace: "evrgo",
			Subsystem: "notify",
		},
	)
)

func init() {
	prometheus.MustRegister(
		framesReceived,
		sequenceGaps,
		dispatchErrors,
		transportErrors,
	)
}
