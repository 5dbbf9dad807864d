package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_ws_connections",
		Help: "Currently open websocket sessions.",
	})

	metricEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_ws_events_total",
		Help: "Inbound realtime events dispatched, by event type.",
	}, []string{"type"})

	metricDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_ws_deliveries_total",
		Help: "Outbound envelopes enqueued to live sessions, by event type.",
	}, []string{"type"})

	metricDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_ws_dropped_total",
		Help: "Outbound envelopes dropped due to backpressure or shutdown.",
	})

	metricOfflineTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_ws_offline_total",
		Help: "Deliveries that found no live connection for the target identity.",
	})
)
