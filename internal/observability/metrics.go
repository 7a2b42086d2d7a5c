package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the chat server.
type Metrics struct {
	// Connections is the number of currently open WebSocket connections.
	Connections prometheus.Gauge
	// Rooms is the number of live room coordinators.
	Rooms prometheus.Gauge
	// MessagesBroadcast counts chat messages fanned out by room coordinators.
	MessagesBroadcast prometheus.Counter
	// EventsDelivered counts events successfully handed to a connection bridge.
	EventsDelivered prometheus.Counter
	// EventsDropped counts events dropped because a bridge was closed or full.
	EventsDropped prometheus.Counter
}

// NewMetrics creates the chat server collectors and registers them with reg.
//
// Precondition: reg must be non-nil and must not already hold these collectors.
// Postcondition: Returns a Metrics with all collectors registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parley_connections_open",
			Help: "Number of currently open WebSocket connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parley_rooms_live",
			Help: "Number of live room coordinators.",
		}),
		MessagesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_messages_broadcast_total",
			Help: "Chat messages broadcast by room coordinators.",
		}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_events_delivered_total",
			Help: "Events delivered to connection bridges.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_events_dropped_total",
			Help: "Events dropped due to closed or full connection bridges.",
		}),
	}
	reg.MustRegister(m.Connections, m.Rooms, m.MessagesBroadcast, m.EventsDelivered, m.EventsDropped)
	return m
}

// NopMetrics returns collectors that are not registered anywhere.
// Useful in tests where exposition is irrelevant.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
