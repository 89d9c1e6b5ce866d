// Package observability aggregates live counters for the session layer.
package observability

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time view of the session layer, shaped for logs
// and the debug endpoint.
type Stats struct {
	OpenConnections     int    `json:"open_connections"`
	ConnectionsAdmitted uint64 `json:"connections_admitted"`
	ConnectionsClosed   uint64 `json:"connections_closed"`
	FramesReceived      uint64 `json:"frames_received"`
	CommandsDispatched  uint64 `json:"commands_dispatched"`
	CommandsDropped     uint64 `json:"commands_dropped"`
	BroadcastsSent      uint64 `json:"broadcasts_sent"`
	FramesDelivered     uint64 `json:"frames_delivered"`
	SendFailures        uint64 `json:"send_failures"`
	LivenessEvictions   uint64 `json:"liveness_evictions"`
	EventsConsumed      uint64 `json:"events_consumed"`
	CollectedAt         string `json:"collected_at"`
}

// Monitor holds atomic counters shared by the transport, dispatcher,
// broadcaster and liveness monitor. All methods are safe for concurrent use.
type Monitor struct {
	connectionsAdmitted uint64
	connectionsClosed   uint64
	framesReceived      uint64
	commandsDispatched  uint64
	commandsDropped     uint64
	broadcastsSent      uint64
	framesDelivered     uint64
	sendFailures        uint64
	livenessEvictions   uint64
	eventsConsumed      uint64
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) ConnectionAdmitted() { atomic.AddUint64(&m.connectionsAdmitted, 1) }
func (m *Monitor) ConnectionClosed()   { atomic.AddUint64(&m.connectionsClosed, 1) }
func (m *Monitor) FrameReceived()      { atomic.AddUint64(&m.framesReceived, 1) }
func (m *Monitor) CommandDispatched()  { atomic.AddUint64(&m.commandsDispatched, 1) }
func (m *Monitor) CommandDropped()     { atomic.AddUint64(&m.commandsDropped, 1) }
func (m *Monitor) BroadcastSent()      { atomic.AddUint64(&m.broadcastsSent, 1) }
func (m *Monitor) FrameDelivered()     { atomic.AddUint64(&m.framesDelivered, 1) }
func (m *Monitor) SendFailed()         { atomic.AddUint64(&m.sendFailures, 1) }
func (m *Monitor) LivenessEviction()   { atomic.AddUint64(&m.livenessEvictions, 1) }
func (m *Monitor) EventConsumed()      { atomic.AddUint64(&m.eventsConsumed, 1) }

// Snapshot copies every counter. openConnections comes from the registry
// since the monitor only sees deltas.
func (m *Monitor) Snapshot(openConnections int) Stats {
	return Stats{
		OpenConnections:     openConnections,
		ConnectionsAdmitted: atomic.LoadUint64(&m.connectionsAdmitted),
		ConnectionsClosed:   atomic.LoadUint64(&m.connectionsClosed),
		FramesReceived:      atomic.LoadUint64(&m.framesReceived),
		CommandsDispatched:  atomic.LoadUint64(&m.commandsDispatched),
		CommandsDropped:     atomic.LoadUint64(&m.commandsDropped),
		BroadcastsSent:      atomic.LoadUint64(&m.broadcastsSent),
		FramesDelivered:     atomic.LoadUint64(&m.framesDelivered),
		SendFailures:        atomic.LoadUint64(&m.sendFailures),
		LivenessEvictions:   atomic.LoadUint64(&m.livenessEvictions),
		EventsConsumed:      atomic.LoadUint64(&m.eventsConsumed),
		CollectedAt:         time.Now().UTC().Format(time.RFC3339),
	}
}
